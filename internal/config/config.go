package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":5000",
			ReadTimeout:     Duration{Duration: 15 * time.Second},
			WriteTimeout:    Duration{Duration: 35 * time.Second},
			IdleTimeout:     Duration{Duration: 60 * time.Second},
			ShutdownTimeout: Duration{Duration: 15 * time.Second},
			RequestTimeout:  Duration{Duration: 30 * time.Second},
		},
		Auth: AuthConfig{
			TokenTTL: Duration{Duration: time.Hour},
		},
		Stripe: StripeConfig{
			Currency:           "usd",
			PaymentMethodTypes: []string{"card"},
		},
		Storage: StorageConfig{
			Backend:           "mongodb",
			MongoDBDatabase:   "PharmaPlaza",
			ConnectTimeout:    Duration{Duration: 10 * time.Second},
			UseTransactions:   true,
			ReconcileInterval: Duration{Duration: time.Minute},
			ReconcileGrace:    Duration{Duration: 30 * time.Second},
		},
		RateLimit: RateLimitConfig{
			GlobalEnabled:    true,
			GlobalLimit:      1000,
			GlobalWindow:     Duration{Duration: time.Minute},
			PerCallerEnabled: true,
			PerCallerLimit:   120,
			PerCallerWindow:  Duration{Duration: time.Minute},
			PerIPEnabled:     true,
			PerIPLimit:       240,
			PerIPWindow:      Duration{Duration: time.Minute},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled: true,
			StripeAPI: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
		},
	}
}

func (c *Config) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
