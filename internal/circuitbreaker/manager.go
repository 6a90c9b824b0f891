package circuitbreaker

import (
	"time"

	"github.com/pharmaplaza/server/internal/config"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ServiceType identifies an external dependency with its own breaker.
type ServiceType string

const (
	ServiceStripe ServiceType = "stripe_api"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// Manager holds one circuit breaker per external service so a failing
// dependency cannot exhaust request handlers for unrelated routes.
type Manager struct {
	breakers map[ServiceType]*gobreaker.CircuitBreaker
	enabled  bool
}

// BreakerConfig configures a single circuit breaker.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears counts in the closed state. 0 never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// NewManagerFromConfig creates a manager from application config.
func NewManagerFromConfig(cfg config.CircuitBreakerConfig, logger zerolog.Logger) *Manager {
	return NewManager(cfg.Enabled, map[ServiceType]BreakerConfig{
		ServiceStripe: {
			MaxRequests:         cfg.StripeAPI.MaxRequests,
			Interval:            cfg.StripeAPI.Interval.Duration,
			Timeout:             cfg.StripeAPI.Timeout.Duration,
			ConsecutiveFailures: cfg.StripeAPI.ConsecutiveFailures,
			FailureRatio:        cfg.StripeAPI.FailureRatio,
			MinRequests:         cfg.StripeAPI.MinRequests,
		},
	}, logger)
}

// NewManager creates a manager. When enabled is false every call passes through.
func NewManager(enabled bool, services map[ServiceType]BreakerConfig, logger zerolog.Logger) *Manager {
	m := &Manager{
		breakers: make(map[ServiceType]*gobreaker.CircuitBreaker),
		enabled:  enabled,
	}
	if !enabled {
		return m
	}
	for service, cfg := range services {
		m.breakers[service] = gobreaker.NewCircuitBreaker(toGobreakerSettings(string(service), cfg, logger))
	}
	return m
}

// Execute runs fn under the service's breaker, or directly when none is configured.
func (m *Manager) Execute(service ServiceType, fn func() (interface{}, error)) (interface{}, error) {
	if m == nil || !m.enabled {
		return fn()
	}
	breaker, ok := m.breakers[service]
	if !ok {
		return fn()
	}
	return breaker.Execute(fn)
}

// State returns the breaker state name, "disabled", or "not_configured".
func (m *Manager) State(service ServiceType) string {
	if m == nil || !m.enabled {
		return "disabled"
	}
	breaker, ok := m.breakers[service]
	if !ok {
		return "not_configured"
	}
	return breaker.State().String()
}

func toGobreakerSettings(name string, cfg BreakerConfig, logger zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if cfg.FailureRatio > 0 && cfg.MinRequests > 0 && counts.Requests >= cfg.MinRequests {
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit_breaker.state_changed")
		},
	}
}
