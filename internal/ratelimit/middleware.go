package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	// Global rate limiting (across all callers)
	GlobalEnabled bool
	GlobalLimit   int
	GlobalWindow  time.Duration

	// Per-caller rate limiting, keyed by bearer token with an IP fallback
	PerCallerEnabled bool
	PerCallerLimit   int
	PerCallerWindow  time.Duration

	// Per-IP rate limiting
	PerIPEnabled bool
	PerIPLimit   int
	PerIPWindow  time.Duration

	// Metrics collector (optional)
	Metrics *metrics.Metrics
}

// DefaultConfig returns limits generous enough for browsing traffic.
func DefaultConfig() Config {
	return Config{
		GlobalEnabled: true,
		GlobalLimit:   1000,
		GlobalWindow:  1 * time.Minute,

		PerCallerEnabled: true,
		PerCallerLimit:   120,
		PerCallerWindow:  1 * time.Minute,

		PerIPEnabled: true,
		PerIPLimit:   240,
		PerIPWindow:  1 * time.Minute,
	}
}

// limitHandler writes the JSON 429 body shared by every limiter.
func limitHandler(limitType string, window time.Duration, m *metrics.Metrics) func(http.ResponseWriter, *http.Request) {
	seconds := int(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	var message string
	switch limitType {
	case "global":
		message = "Global rate limit exceeded. Please try again later."
	case "per_ip":
		message = "IP rate limit exceeded. Please try again later."
	default:
		message = "Rate limit exceeded. Please try again later."
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if m != nil {
			m.ObserveRateLimit(limitType)
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		apierrors.WriteErrorWithDetail(w, apierrors.ErrCodeRateLimited, message, "retryAfterSeconds", seconds)
	}
}

func passthrough(next http.Handler) http.Handler { return next }

// GlobalLimiter creates a global rate limiter middleware.
func GlobalLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled {
		return passthrough
	}
	return httprate.Limit(
		cfg.GlobalLimit,
		cfg.GlobalWindow,
		httprate.WithKeyFuncs(func(*http.Request) (string, error) { return "global", nil }),
		httprate.WithLimitHandler(limitHandler("global", cfg.GlobalWindow, cfg.Metrics)),
	)
}

// CallerLimiter limits each authenticated caller. Anonymous requests are
// keyed by IP.
func CallerLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerCallerEnabled {
		return passthrough
	}
	return httprate.Limit(
		cfg.PerCallerLimit,
		cfg.PerCallerWindow,
		httprate.WithKeyFuncs(callerKey),
		httprate.WithLimitHandler(limitHandler("per_caller", cfg.PerCallerWindow, cfg.Metrics)),
	)
}

// IPLimiter creates a per-IP rate limiter middleware.
func IPLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerIPEnabled {
		return passthrough
	}
	return httprate.Limit(
		cfg.PerIPLimit,
		cfg.PerIPWindow,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(limitHandler("per_ip", cfg.PerIPWindow, cfg.Metrics)),
	)
}

// callerKey keys by the bearer token so one caller behind a shared IP
// cannot exhaust the budget of others.
func callerKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") && token != "" {
		return "token:" + token, nil
	}
	return httprate.KeyByIP(r)
}
