package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// PHARMA_* variables win over the legacy unprefixed names.
func (c *Config) applyEnvOverrides() {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	setIfEnv(&c.Server.Address, "PHARMA_SERVER_ADDRESS")
	setIfEnv(&c.Server.RoutePrefix, "PHARMA_ROUTE_PREFIX")
	setIfEnv(&c.Server.AdminMetricsAPIKey, "PHARMA_ADMIN_METRICS_API_KEY")
	if v := os.Getenv("PHARMA_CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.CORSAllowedOrigins = splitList(v)
	}
	if c.Server.RoutePrefix != "" {
		c.Server.RoutePrefix = normalizeRoutePrefix(c.Server.RoutePrefix)
	}

	// Logging
	setIfEnv(&c.Logging.Level, "PHARMA_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "PHARMA_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "PHARMA_ENVIRONMENT")

	// Auth
	setIfEnv(&c.Auth.TokenSecret, "ACCESS_TOKEN")
	setIfEnv(&c.Auth.TokenSecret, "PHARMA_TOKEN_SECRET")
	setDurationIfEnv(&c.Auth.TokenTTL, "PHARMA_TOKEN_TTL")

	// Stripe (STRIPE_SECRECT_KEY is the name older deployments used)
	setIfEnv(&c.Stripe.SecretKey, "STRIPE_SECRECT_KEY")
	setIfEnv(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setIfEnv(&c.Stripe.SecretKey, "PHARMA_STRIPE_SECRET_KEY")
	setIfEnv(&c.Stripe.Currency, "PHARMA_STRIPE_CURRENCY")

	// Storage
	setIfEnv(&c.Storage.Backend, "PHARMA_STORAGE_BACKEND")
	setIfEnv(&c.Storage.MongoDBUser, "DB_USER")
	setIfEnv(&c.Storage.MongoDBPassword, "DB_PASS")
	setIfEnv(&c.Storage.MongoDBURL, "PHARMA_MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBHost, "PHARMA_MONGODB_HOST")
	setIfEnv(&c.Storage.MongoDBDatabase, "PHARMA_MONGODB_DATABASE")
	setBoolIfEnv(&c.Storage.UseTransactions, "PHARMA_STORAGE_USE_TRANSACTIONS")
	setDurationIfEnv(&c.Storage.ReconcileInterval, "PHARMA_STORAGE_RECONCILE_INTERVAL")

	// Rate limits
	setBoolIfEnv(&c.RateLimit.GlobalEnabled, "PHARMA_RATE_LIMIT_GLOBAL_ENABLED")
	setIntIfEnv(&c.RateLimit.GlobalLimit, "PHARMA_RATE_LIMIT_GLOBAL_LIMIT")
	setBoolIfEnv(&c.RateLimit.PerCallerEnabled, "PHARMA_RATE_LIMIT_PER_CALLER_ENABLED")
	setIntIfEnv(&c.RateLimit.PerCallerLimit, "PHARMA_RATE_LIMIT_PER_CALLER_LIMIT")
	setBoolIfEnv(&c.RateLimit.PerIPEnabled, "PHARMA_RATE_LIMIT_PER_IP_ENABLED")
	setIntIfEnv(&c.RateLimit.PerIPLimit, "PHARMA_RATE_LIMIT_PER_IP_LIMIT")

	setBoolIfEnv(&c.CircuitBreaker.Enabled, "PHARMA_CIRCUIT_BREAKER_ENABLED")
}

func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv accepts "1" or any casing of "true" as true.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeRoutePrefix ensures the prefix starts with / and doesn't end with /.
func normalizeRoutePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}
