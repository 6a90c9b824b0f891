package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the PharmaPlaza API.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthFailuresTotal *prometheus.CounterVec

	// Payment metrics
	PaymentIntentsTotal   *prometheus.CounterVec
	PaymentIntentAmount   prometheus.Counter
	PaymentIntentDuration prometheus.Histogram
	PaymentsRecordedTotal prometheus.Counter
	InvoicesCreatedTotal  *prometheus.CounterVec
	CartItemsPurgedTotal  prometheus.Counter

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec

	// Reconciler metrics
	ReconcileRunsTotal     prometheus.Counter
	ReconcileInvoicesTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmaplaza_http_requests_total",
				Help: "Total number of HTTP requests by route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pharmaplaza_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		AuthFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmaplaza_auth_failures_total",
				Help: "Requests rejected by the token or role gate",
			},
			[]string{"reason"},
		),

		PaymentIntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmaplaza_payment_intents_total",
				Help: "Stripe payment intents created, by outcome",
			},
			[]string{"status"},
		),
		PaymentIntentAmount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmaplaza_payment_intent_amount_cents_total",
				Help: "Total amount requested in payment intents, in cents",
			},
		),
		PaymentIntentDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pharmaplaza_payment_intent_duration_seconds",
				Help:    "Latency of Stripe payment intent creation",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		PaymentsRecordedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmaplaza_payments_recorded_total",
				Help: "Payment records stored",
			},
		),
		InvoicesCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmaplaza_invoices_created_total",
				Help: "Invoices created, by write mode",
			},
			[]string{"mode"},
		),
		CartItemsPurgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmaplaza_cart_items_purged_total",
				Help: "Cart items removed as part of invoice creation",
			},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmaplaza_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"limit_type"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pharmaplaza_db_query_duration_seconds",
				Help:    "Database query latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation", "backend"},
		),

		ReconcileRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmaplaza_invoice_reconcile_runs_total",
				Help: "Invoice reconciliation passes",
			},
		),
		ReconcileInvoicesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmaplaza_invoice_reconcile_invoices_total",
				Help: "Invoices whose cart purge was completed by the reconciler",
			},
		),
	}
}

// ObserveHTTPRequest records a completed request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAuthFailure records a rejected request.
func (m *Metrics) ObserveAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// ObservePaymentIntent records a payment intent attempt.
func (m *Metrics) ObservePaymentIntent(success bool, amountCents int64, duration time.Duration) {
	status := "failed"
	if success {
		status = "created"
		m.PaymentIntentAmount.Add(float64(amountCents))
	}
	m.PaymentIntentsTotal.WithLabelValues(status).Inc()
	m.PaymentIntentDuration.Observe(duration.Seconds())
}

// ObservePaymentRecorded records a stored payment.
func (m *Metrics) ObservePaymentRecorded() {
	m.PaymentsRecordedTotal.Inc()
}

// ObserveInvoice records an invoice and the number of cart items it purged.
func (m *Metrics) ObserveInvoice(mode string, purged int64) {
	m.InvoicesCreatedTotal.WithLabelValues(mode).Inc()
	m.CartItemsPurgedTotal.Add(float64(purged))
}

// ObserveRateLimit records a rate limit hit.
func (m *Metrics) ObserveRateLimit(limitType string) {
	m.RateLimitHitsTotal.WithLabelValues(limitType).Inc()
}

// ObserveDBQuery records a database query.
func (m *Metrics) ObserveDBQuery(operation, backend string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// ObserveReconcile records a reconciliation pass.
func (m *Metrics) ObserveReconcile(invoices int64) {
	m.ReconcileRunsTotal.Inc()
	m.ReconcileInvoicesTotal.Add(float64(invoices))
}
