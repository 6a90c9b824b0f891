package storage

import (
	"context"
	"time"

	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/rs/zerolog"
)

// ReconcilerConfig controls the invoice reconciler.
type ReconcilerConfig struct {
	Interval time.Duration // how often to look for pending invoices
	Grace    time.Duration // minimum age of a pending invoice before it is retried
}

// InvoiceReconciler completes cart purges left unfinished by invoice writes
// that ran without a transaction.
type InvoiceReconciler struct {
	store    InvoiceStore
	config   ReconcilerConfig
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewInvoiceReconciler creates a reconciler. metricsCollector may be nil.
func NewInvoiceReconciler(store InvoiceStore, cfg ReconcilerConfig, metricsCollector *metrics.Metrics, logger zerolog.Logger) *InvoiceReconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReconcileInterval
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultReconcileGrace
	}
	return &InvoiceReconciler{
		store:    store,
		config:   cfg,
		logger:   logger,
		metrics:  metricsCollector,
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the background loop.
func (r *InvoiceReconciler) Start() {
	r.logger.Info().
		Dur("interval", r.config.Interval).
		Dur("grace", r.config.Grace).
		Msg("invoices.reconciler.started")
	go r.run()
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (r *InvoiceReconciler) Stop() {
	close(r.stopChan)
	<-r.doneChan
	r.logger.Info().Msg("invoices.reconciler.stopped")
}

// Close implements io.Closer for the lifecycle manager.
func (r *InvoiceReconciler) Close() error {
	r.Stop()
	return nil
}

func (r *InvoiceReconciler) run() {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = r.RunOnce(context.Background())
		case <-r.stopChan:
			return
		}
	}
}

// RunOnce performs a single reconciliation pass.
func (r *InvoiceReconciler) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := r.now().Add(-r.config.Grace)
	count, err := r.store.ReconcileInvoices(ctx, cutoff)
	if r.metrics != nil {
		r.metrics.ObserveReconcile(count)
	}
	if err != nil {
		r.logger.Error().Err(err).Int64("completed", count).Msg("invoices.reconciler.pass_failed")
		return count, err
	}
	if count > 0 {
		r.logger.Info().Int64("completed", count).Time("cutoff", cutoff).Msg("invoices.reconciler.purged")
	}
	return count, nil
}
