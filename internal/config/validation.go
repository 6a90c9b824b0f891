package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":5000"
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		c.Server.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		c.Server.RequestTimeout = Duration{Duration: 30 * time.Second}
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		c.Auth.TokenTTL = Duration{Duration: time.Hour}
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}
	c.Stripe.Currency = strings.ToLower(c.Stripe.Currency)
	if len(c.Stripe.PaymentMethodTypes) == 0 {
		c.Stripe.PaymentMethodTypes = []string{"card"}
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "mongodb"
	}
	if c.Storage.MongoDBDatabase == "" {
		c.Storage.MongoDBDatabase = "PharmaPlaza"
	}
	if c.Storage.ConnectTimeout.Duration <= 0 {
		c.Storage.ConnectTimeout = Duration{Duration: 10 * time.Second}
	}
	if c.Storage.ReconcileInterval.Duration <= 0 {
		c.Storage.ReconcileInterval = Duration{Duration: time.Minute}
	}
	if c.Storage.MongoDBURL == "" && c.Storage.MongoDBHost != "" {
		c.Storage.MongoDBURL = BuildMongoURL(c.Storage.MongoDBHost, c.Storage.MongoDBUser, c.Storage.MongoDBPassword)
	}

	return c.validate()
}

func (c *Config) validate() error {
	var errs []error

	if c.Auth.TokenSecret == "" {
		errs = append(errs, errors.New("auth token secret is required (ACCESS_TOKEN or PHARMA_TOKEN_SECRET)"))
	}

	switch c.Storage.Backend {
	case "memory":
	case "mongodb":
		if c.Storage.MongoDBURL == "" {
			errs = append(errs, errors.New("storage.mongodb_url or storage.mongodb_host is required for the mongodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be 'mongodb' or 'memory', got %q", c.Storage.Backend))
	}

	if len(c.Stripe.Currency) != 3 {
		errs = append(errs, fmt.Errorf("stripe.currency must be a 3-letter ISO code, got %q", c.Stripe.Currency))
	}

	rl := c.RateLimit
	if rl.GlobalEnabled && (rl.GlobalLimit <= 0 || rl.GlobalWindow.Duration <= 0) {
		errs = append(errs, errors.New("rate_limit.global_limit and global_window must be positive when enabled"))
	}
	if rl.PerCallerEnabled && (rl.PerCallerLimit <= 0 || rl.PerCallerWindow.Duration <= 0) {
		errs = append(errs, errors.New("rate_limit.per_caller_limit and per_caller_window must be positive when enabled"))
	}
	if rl.PerIPEnabled && (rl.PerIPLimit <= 0 || rl.PerIPWindow.Duration <= 0) {
		errs = append(errs, errors.New("rate_limit.per_ip_limit and per_ip_window must be positive when enabled"))
	}

	if ratio := c.CircuitBreaker.StripeAPI.FailureRatio; ratio < 0 || ratio > 1 {
		errs = append(errs, fmt.Errorf("circuit_breaker.stripe_api.failure_ratio must be within [0,1], got %v", ratio))
	}

	return errors.Join(errs...)
}

// BuildMongoURL assembles an Atlas-style SRV connection string.
func BuildMongoURL(host, user, password string) string {
	u := url.URL{
		Scheme:   "mongodb+srv",
		Host:     host,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	return u.String()
}
