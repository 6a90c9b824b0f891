package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"

	"github.com/pharmaplaza/server/internal/circuitbreaker"
	"github.com/pharmaplaza/server/internal/config"
	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/pharmaplaza/server/internal/money"
)

var (
	// ErrNotConfigured is returned when no secret key is set.
	ErrNotConfigured = errors.New("stripe: secret key not configured")
	// ErrInvalidAmount is returned for prices that do not convert to a positive cent amount.
	ErrInvalidAmount = errors.New("stripe: amount must be positive")
	// ErrProvider wraps failures reported by Stripe or the circuit breaker.
	ErrProvider = errors.New("stripe: provider error")
)

// Client creates Stripe payment intents.
type Client struct {
	cfg     config.StripeConfig
	intents paymentintent.Client
	breaker *circuitbreaker.Manager
	metrics *metrics.Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithBackend overrides the Stripe API backend.
func WithBackend(backend stripeapi.Backend) Option {
	return func(c *Client) { c.intents.B = backend }
}

// NewClient sets up a payment intent client. breaker and metricsCollector may be nil.
func NewClient(cfg config.StripeConfig, breaker *circuitbreaker.Manager, metricsCollector *metrics.Metrics, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		intents: paymentintent.Client{
			B:   stripeapi.GetBackend(stripeapi.APIBackend),
			Key: cfg.SecretKey,
		},
		breaker: breaker,
		metrics: metricsCollector,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CentsFromPrice converts a decimal price into integer cents, rounding
// half-up to the nearest cent.
func CentsFromPrice(price float64) (int64, error) {
	amount, err := money.FromFloat("usd", price)
	if err != nil || !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return amount.Cents, nil
}

// CreatePaymentIntent creates an intent for price and returns its client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, price float64) (string, error) {
	if c.cfg.SecretKey == "" {
		return "", ErrNotConfigured
	}
	amount, err := CentsFromPrice(price)
	if err != nil {
		return "", err
	}

	params := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(amount),
		Currency:           stripeapi.String(c.cfg.Currency),
		PaymentMethodTypes: stripeapi.StringSlice(c.cfg.PaymentMethodTypes),
	}
	params.Context = ctx

	start := time.Now()
	result, err := c.breaker.Execute(circuitbreaker.ServiceStripe, func() (interface{}, error) {
		return c.intents.New(params)
	})
	if c.metrics != nil {
		c.metrics.ObservePaymentIntent(err == nil, amount, time.Since(start))
	}
	if err != nil {
		return "", fmt.Errorf("%w: create payment intent: %v", ErrProvider, err)
	}

	intent, ok := result.(*stripeapi.PaymentIntent)
	if !ok || intent == nil {
		return "", fmt.Errorf("%w: empty payment intent response", ErrProvider)
	}
	return intent.ClientSecret, nil
}
