package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses Go-style duration strings, or bare numbers as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err == nil {
		d.Duration = parsed
		return nil
	}
	if secs, convErr := time.ParseDuration(raw + "s"); convErr == nil {
		d.Duration = secs
		return nil
	}
	return fmt.Errorf("invalid duration value %q: %w", raw, err)
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Auth           AuthConfig           `yaml:"auth"`
	Stripe         StripeConfig         `yaml:"stripe"`
	Storage        StorageConfig        `yaml:"storage"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	IdleTimeout        Duration `yaml:"idle_timeout"`
	ShutdownTimeout    Duration `yaml:"shutdown_timeout"`
	RequestTimeout     Duration `yaml:"request_timeout"` // per-request budget for API routes
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RoutePrefix        string   `yaml:"route_prefix"`
	AdminMetricsAPIKey string   `yaml:"admin_metrics_api_key"` // empty leaves /metrics open
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format      string `yaml:"format"` // json, console (default: json)
	Environment string `yaml:"environment"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	TokenSecret string   `yaml:"-"` // env only
	TokenTTL    Duration `yaml:"token_ttl"`
}

// StripeConfig holds payment-intent settings.
type StripeConfig struct {
	SecretKey          string   `yaml:"-"` // env only
	Currency           string   `yaml:"currency"`
	PaymentMethodTypes []string `yaml:"payment_method_types"`
}

// StorageConfig holds the document store configuration.
type StorageConfig struct {
	Backend           string   `yaml:"backend"`     // "mongodb" or "memory"
	MongoDBURL        string   `yaml:"mongodb_url"` // full URI; built from host+credentials when empty
	MongoDBHost       string   `yaml:"mongodb_host"`
	MongoDBUser       string   `yaml:"-"`
	MongoDBPassword   string   `yaml:"-"`
	MongoDBDatabase   string   `yaml:"mongodb_database"`
	ConnectTimeout    Duration `yaml:"connect_timeout"`
	UseTransactions   bool     `yaml:"use_transactions"`   // wrap invoice+cart purge in a transaction
	ReconcileInterval Duration `yaml:"reconcile_interval"` // how often pending cart purges are retried
	ReconcileGrace    Duration `yaml:"reconcile_grace"`    // minimum age of a pending purge before retry
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	GlobalEnabled bool     `yaml:"global_enabled"`
	GlobalLimit   int      `yaml:"global_limit"`
	GlobalWindow  Duration `yaml:"global_window"`

	// Per-caller limits are keyed by the bearer token, falling back to IP.
	PerCallerEnabled bool     `yaml:"per_caller_enabled"`
	PerCallerLimit   int      `yaml:"per_caller_limit"`
	PerCallerWindow  Duration `yaml:"per_caller_window"`

	PerIPEnabled bool     `yaml:"per_ip_enabled"`
	PerIPLimit   int      `yaml:"per_ip_limit"`
	PerIPWindow  Duration `yaml:"per_ip_window"`
}

// CircuitBreakerConfig holds circuit breaker configuration for external services.
type CircuitBreakerConfig struct {
	Enabled   bool                 `yaml:"enabled"`
	StripeAPI BreakerServiceConfig `yaml:"stripe_api"`
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`
	Interval            Duration `yaml:"interval"`
	Timeout             Duration `yaml:"timeout"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
	FailureRatio        float64  `yaml:"failure_ratio"`
	MinRequests         uint32   `yaml:"min_requests"`
}
