// Package pharmaplaza assembles the PharmaPlaza API for standalone serving or
// for mounting on an existing chi router.
package pharmaplaza

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pharmaplaza/server/internal/auth"
	"github.com/pharmaplaza/server/internal/circuitbreaker"
	"github.com/pharmaplaza/server/internal/config"
	"github.com/pharmaplaza/server/internal/httpserver"
	"github.com/pharmaplaza/server/internal/idempotency"
	"github.com/pharmaplaza/server/internal/lifecycle"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/pharmaplaza/server/internal/storage"
	stripesvc "github.com/pharmaplaza/server/internal/stripe"
)

const idempotencySweepInterval = 5 * time.Minute

// App wires the PharmaPlaza components together.
type App struct {
	Config           *config.Config
	Store            storage.Store
	Payments         httpserver.PaymentIntentCreator
	Reconciler       *storage.InvoiceReconciler
	IdempotencyStore *idempotency.MemoryStore
	Logger           zerolog.Logger

	router    chi.Router
	resources *lifecycle.Manager
	metrics   *metrics.Metrics
}

// Option configures App construction.
type Option func(*options)

type options struct {
	store    storage.Store
	payments httpserver.PaymentIntentCreator
	router   chi.Router
	logger   *zerolog.Logger
	registry *prometheus.Registry
}

// WithStore sets a custom storage backend. The caller keeps ownership of it.
func WithStore(store storage.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithPaymentIntents replaces the Stripe client.
func WithPaymentIntents(p httpserver.PaymentIntentCreator) Option {
	return func(o *options) {
		o.payments = p
	}
}

// WithRouter registers routes onto an existing chi.Router. The router must
// not have routes yet: chi requires middleware to be added first.
func WithRouter(router chi.Router) Option {
	return func(o *options) {
		o.router = router
	}
}

// WithLogger overrides the logger built from cfg.Logging.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithRegistry registers metrics on reg and serves /metrics from it instead
// of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// NewApp assembles the API. ctx bounds the initial database connection.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("pharmaplaza: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "pharmaplaza-api",
		Environment: cfg.Logging.Environment,
	})
	if optState.logger != nil {
		appLogger = *optState.logger
	}

	app := &App{
		Config:    cfg,
		Logger:    appLogger,
		resources: lifecycle.NewManager(appLogger),
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if optState.registry != nil {
		registerer, gatherer = optState.registry, optState.registry
	}
	app.metrics = metrics.New(registerer)

	if optState.store != nil {
		app.Store = optState.store
	} else {
		store, err := storage.NewStore(ctx, storage.StoreConfig{
			Backend:         cfg.Storage.Backend,
			MongoDBURL:      cfg.Storage.MongoDBURL,
			MongoDBDatabase: cfg.Storage.MongoDBDatabase,
			ConnectTimeout:  cfg.Storage.ConnectTimeout.Duration,
			UseTransactions: cfg.Storage.UseTransactions,
			Metrics:         app.metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		app.Store = store
		app.resources.Register("storage", store)
		if cfg.Storage.Backend == "memory" {
			appLogger.Warn().Msg("pharmaplaza: using the in-memory store; data is lost on restart")
		}
	}

	app.Reconciler = storage.NewInvoiceReconciler(app.Store, storage.ReconcilerConfig{
		Interval: cfg.Storage.ReconcileInterval.Duration,
		Grace:    cfg.Storage.ReconcileGrace.Duration,
	}, app.metrics, appLogger)
	app.Reconciler.Start()
	app.resources.Register("invoice-reconciler", app.Reconciler)

	if optState.payments != nil {
		app.Payments = optState.payments
	} else {
		breakers := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker, appLogger)
		app.Payments = stripesvc.NewClient(cfg.Stripe, breakers, app.metrics)
		if cfg.Stripe.SecretKey == "" {
			appLogger.Warn().Msg("pharmaplaza: stripe secret key not set; payment intents will fail")
		}
	}

	app.IdempotencyStore = idempotency.NewMemoryStore(idempotency.DefaultMaxEntries, idempotencySweepInterval)
	app.resources.Register("idempotency-store", app.IdempotencyStore)

	if optState.router != nil {
		app.router = optState.router
	} else {
		app.router = chi.NewRouter()
	}

	httpserver.ConfigureRouter(app.router, cfg, httpserver.Deps{
		Store:          app.Store,
		Issuer:         auth.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL.Duration),
		PaymentIntents: app.Payments,
		Idempotency:    app.IdempotencyStore,
		Metrics:        app.metrics,
		Gatherer:       gatherer,
		Logger:         appLogger,
	})

	return app, nil
}

// Router returns the chi router with PharmaPlaza routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases everything the app owns, most recently acquired first.
func (a *App) Close() error {
	return a.resources.Close()
}

// Shutdown is Close bounded by ctx.
func (a *App) Shutdown(ctx context.Context) error {
	return a.resources.Shutdown(ctx)
}

// Config is an exported alias of the internal configuration struct for embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for embedders.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
