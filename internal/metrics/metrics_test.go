package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("metrics collector should not be nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal should be initialized")
	}
	if m.PaymentIntentsTotal == nil {
		t.Error("PaymentIntentsTotal should be initialized")
	}
	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration should be initialized")
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTPRequest("GET", "/products", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/products", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest("GET", "", 404, time.Millisecond)

	if got := promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/products", "200")); got != 2 {
		t.Errorf("expected 2 requests, got %.0f", got)
	}
	if got := promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("expected 1 unmatched request, got %.0f", got)
	}
}

func TestObservePaymentIntent(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePaymentIntent(true, 1999, 100*time.Millisecond)
	m.ObservePaymentIntent(false, 500, 100*time.Millisecond)

	if got := promtest.ToFloat64(m.PaymentIntentsTotal.WithLabelValues("created")); got != 1 {
		t.Errorf("created = %.0f", got)
	}
	if got := promtest.ToFloat64(m.PaymentIntentsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %.0f", got)
	}
	if got := promtest.ToFloat64(m.PaymentIntentAmount); got != 1999 {
		t.Errorf("amount = %.0f, failed intents must not count", got)
	}
}

func TestObserveInvoiceAndReconcile(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveInvoice("transaction", 3)
	m.ObserveInvoice("compensating", 1)
	m.ObserveReconcile(2)
	m.ObserveReconcile(0)

	if got := promtest.ToFloat64(m.CartItemsPurgedTotal); got != 4 {
		t.Errorf("purged = %.0f", got)
	}
	if got := promtest.ToFloat64(m.ReconcileRunsTotal); got != 2 {
		t.Errorf("runs = %.0f", got)
	}
	if got := promtest.ToFloat64(m.ReconcileInvoicesTotal); got != 2 {
		t.Errorf("invoices = %.0f", got)
	}
}

func TestMeasureDBQueryNilSafe(t *testing.T) {
	MeasureDBQuery(nil, "users.find", "mongodb")()
	RecordDBQuery(nil, "users.find", "mongodb", time.Millisecond)

	m := New(prometheus.NewRegistry())
	MeasureDBQuery(m, "users.find", "mongodb")()
	if n := promtest.CollectAndCount(m.DBQueryDuration); n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}
