package config

import (
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name:    "PORT sets listen address",
			envVars: map[string]string{"PORT": "8081"},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != ":8081" {
					t.Errorf("expected :8081, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name: "PHARMA_SERVER_ADDRESS wins over PORT",
			envVars: map[string]string{
				"PORT":                  "8081",
				"PHARMA_SERVER_ADDRESS": "127.0.0.1:9000",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != "127.0.0.1:9000" {
					t.Errorf("expected 127.0.0.1:9000, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name:    "route prefix normalized",
			envVars: map[string]string{"PHARMA_ROUTE_PREFIX": "api/"},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.RoutePrefix != "/api" {
					t.Errorf("expected /api, got %s", cfg.Server.RoutePrefix)
				}
			},
		},
		{
			name: "legacy secrets",
			envVars: map[string]string{
				"ACCESS_TOKEN":       "jwt-secret",
				"STRIPE_SECRECT_KEY": "sk_test_legacy",
				"DB_USER":            "pharma",
				"DB_PASS":            "pw",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Auth.TokenSecret != "jwt-secret" {
					t.Errorf("token secret = %q", cfg.Auth.TokenSecret)
				}
				if cfg.Stripe.SecretKey != "sk_test_legacy" {
					t.Errorf("stripe key = %q", cfg.Stripe.SecretKey)
				}
				if cfg.Storage.MongoDBUser != "pharma" || cfg.Storage.MongoDBPassword != "pw" {
					t.Errorf("db credentials = %q/%q", cfg.Storage.MongoDBUser, cfg.Storage.MongoDBPassword)
				}
			},
		},
		{
			name: "prefixed secrets win over legacy",
			envVars: map[string]string{
				"ACCESS_TOKEN":             "legacy",
				"PHARMA_TOKEN_SECRET":      "modern",
				"STRIPE_SECRECT_KEY":       "sk_legacy",
				"PHARMA_STRIPE_SECRET_KEY": "sk_modern",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Auth.TokenSecret != "modern" {
					t.Errorf("token secret = %q", cfg.Auth.TokenSecret)
				}
				if cfg.Stripe.SecretKey != "sk_modern" {
					t.Errorf("stripe key = %q", cfg.Stripe.SecretKey)
				}
			},
		},
		{
			name: "rate limit and durations",
			envVars: map[string]string{
				"PHARMA_RATE_LIMIT_GLOBAL_ENABLED": "false",
				"PHARMA_RATE_LIMIT_PER_IP_LIMIT":   "7",
				"PHARMA_TOKEN_TTL":                 "15m",
				"PHARMA_CORS_ALLOWED_ORIGINS":      "https://a.example, https://b.example",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.RateLimit.GlobalEnabled {
					t.Error("global limiter should be disabled")
				}
				if cfg.RateLimit.PerIPLimit != 7 {
					t.Errorf("per ip limit = %d", cfg.RateLimit.PerIPLimit)
				}
				if cfg.Auth.TokenTTL.Duration != 15*time.Minute {
					t.Errorf("token ttl = %v", cfg.Auth.TokenTTL.Duration)
				}
				if len(cfg.Server.CORSAllowedOrigins) != 2 || cfg.Server.CORSAllowedOrigins[1] != "https://b.example" {
					t.Errorf("cors = %v", cfg.Server.CORSAllowedOrigins)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{
				"PORT", "PHARMA_SERVER_ADDRESS", "PHARMA_ROUTE_PREFIX", "ACCESS_TOKEN",
				"PHARMA_TOKEN_SECRET", "STRIPE_SECRECT_KEY", "STRIPE_SECRET_KEY",
				"PHARMA_STRIPE_SECRET_KEY", "DB_USER", "DB_PASS", "PHARMA_CORS_ALLOWED_ORIGINS",
				"PHARMA_TOKEN_TTL", "PHARMA_RATE_LIMIT_GLOBAL_ENABLED", "PHARMA_RATE_LIMIT_PER_IP_LIMIT",
			} {
				t.Setenv(key, "")
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestNormalizeRoutePrefix(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"api":     "/api",
		"/api/":   "/api",
		" /v1 ":   "/v1",
		"/pharma": "/pharma",
	}
	for in, want := range tests {
		if got := normalizeRoutePrefix(in); got != want {
			t.Errorf("normalizeRoutePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
