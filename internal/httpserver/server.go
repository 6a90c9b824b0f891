package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pharmaplaza/server/internal/auth"
	"github.com/pharmaplaza/server/internal/config"
	"github.com/pharmaplaza/server/internal/idempotency"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/pharmaplaza/server/internal/ratelimit"
	"github.com/pharmaplaza/server/internal/storage"
)

var serverStartTime = time.Now()

const defaultRequestTimeout = 30 * time.Second

// PaymentIntentCreator creates a provider payment intent for a decimal price
// and returns the client secret.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, price float64) (string, error)
}

// Deps carries the services the routes depend on. Store and Issuer are
// required; everything else is optional.
type Deps struct {
	Store          storage.Store
	Issuer         *auth.Issuer
	PaymentIntents PaymentIntentCreator
	Idempotency    idempotency.Store
	Metrics        *metrics.Metrics
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// Server wires handlers, middleware, and dependencies.
type Server struct {
	httpServer *http.Server
}

type handlers struct {
	cfg     *config.Config
	store   storage.Store
	issuer  *auth.Issuer
	intents PaymentIntentCreator
	logger  zerolog.Logger
}

// New wraps handler in an http.Server using the configured timeouts.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			ReadTimeout:  cfg.ReadTimeout.Duration,
			WriteTimeout: cfg.WriteTimeout.Duration,
			IdleTimeout:  cfg.IdleTimeout.Duration,
			Handler:      handler,
		},
	}
}

// Addr reports the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ConfigureRouter attaches PharmaPlaza routes to an existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, deps Deps) {
	if router == nil {
		return
	}

	h := &handlers{
		cfg:     cfg,
		store:   deps.Store,
		issuer:  deps.Issuer,
		intents: deps.PaymentIntents,
		logger:  deps.Logger,
	}

	var failures auth.FailureRecorder
	if deps.Metrics != nil {
		failures = deps.Metrics
	}
	gate := auth.NewGate(deps.Issuer, deps.Store, failures)

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", idempotency.HeaderKey},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After", idempotency.ReplayHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	router.Use(securityHeadersMiddleware)
	router.Use(middleware.RealIP)
	router.Use(logger.Middleware(deps.Logger))
	router.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		router.Use(requestMetrics(deps.Metrics))
	}

	limits := ratelimit.Config{
		GlobalEnabled:    cfg.RateLimit.GlobalEnabled,
		GlobalLimit:      cfg.RateLimit.GlobalLimit,
		GlobalWindow:     cfg.RateLimit.GlobalWindow.Duration,
		PerCallerEnabled: cfg.RateLimit.PerCallerEnabled,
		PerCallerLimit:   cfg.RateLimit.PerCallerLimit,
		PerCallerWindow:  cfg.RateLimit.PerCallerWindow.Duration,
		PerIPEnabled:     cfg.RateLimit.PerIPEnabled,
		PerIPLimit:       cfg.RateLimit.PerIPLimit,
		PerIPWindow:      cfg.RateLimit.PerIPWindow.Duration,
		Metrics:          deps.Metrics,
	}
	router.Use(ratelimit.GlobalLimiter(limits))
	router.Use(ratelimit.CallerLimiter(limits))
	router.Use(ratelimit.IPLimiter(limits))

	prefix := cfg.Server.RoutePrefix

	metricsHandler := promhttp.Handler()
	if deps.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}

	// Liveness and scraping get a short budget.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/", h.root)
		r.Get("/health", h.health)
		r.With(adminMetricsAuth(cfg.Server.AdminMetricsAPIKey)).Handle(prefix+"/metrics", metricsHandler)
	})

	requestTimeout := cfg.Server.RequestTimeout.Duration
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	replay := func(next http.Handler) http.Handler { return next }
	if deps.Idempotency != nil {
		replay = idempotency.Middleware(deps.Idempotency, idempotency.DefaultTTL)
	}

	admin := func(r chi.Router) chi.Router {
		return r.With(gate.RequireToken, gate.RequireRole(auth.RoleAdmin))
	}
	seller := func(r chi.Router) chi.Router {
		return r.With(gate.RequireToken, gate.RequireRole(auth.RoleSeller))
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Post(prefix+"/jwt", h.issueToken)

		// Users
		r.Post(prefix+"/users", h.createUser)
		r.Get(prefix+"/user", h.listUsers)
		r.Get(prefix+"/user/{email}", h.getUser)
		r.Put(prefix+"/users/{email}", h.updateUser)
		r.With(gate.RequireToken).Patch(prefix+"/users/admin/{id}", h.updateUserRole)

		// Categories
		r.Get(prefix+"/category", h.listCategories)
		r.Get(prefix+"/category/{key}", h.productsByCategory)
		admin(r).Post(prefix+"/category", h.createCategory)
		admin(r).Patch(prefix+"/category/{key}", h.updateCategory)
		admin(r).Delete(prefix+"/category/delete/{id}", h.deleteCategory)

		// Carts
		r.Get(prefix+"/carts", h.listCart)
		r.Post(prefix+"/carts", h.addCartItem)
		r.Delete(prefix+"/carts/{id}", h.removeCartItem)
		r.Delete(prefix+"/cart/{email}", h.clearCart)
		r.Put(prefix+"/update-cart/{id}", h.updateCartItem)

		// Catalog
		r.Get(prefix+"/products", h.listProducts)
		r.Get(prefix+"/products-count", h.countProducts)
		r.Post(prefix+"/product", h.createProduct)

		// Advertisements and editorial content
		r.Get(prefix+"/advertisements", h.listAdvertisements)
		r.Get(prefix+"/advertisements/{email}", h.advertisementsBySeller)
		r.Post(prefix+"/advertisement", h.createAdvertisement)
		r.Patch(prefix+"/advertisement/{id}", h.toggleAdvertisement)
		r.Get(prefix+"/reviews", h.listReviews)
		r.Get(prefix+"/blogs", h.listBlogs)

		// Payments
		admin(r).Get(prefix+"/payment", h.listPayments)
		r.With(gate.RequireToken).Get(prefix+"/payment/{email}", h.paymentsByEmail)
		admin(r).Patch(prefix+"/payment/admin/{id}", h.markPaymentPaid)
		r.With(replay).Post(prefix+"/create-payment-intent", h.createPaymentIntent)
		r.With(replay).Post(prefix+"/payments", h.createPayment)

		// Invoices
		r.Get(prefix+"/invoices", h.listInvoices)
		r.Get(prefix+"/invoice", h.listInvoices)
		r.With(replay).Post(prefix+"/invoice", h.createInvoice)
		r.Delete(prefix+"/invoice-delete/{id}", h.deleteInvoice)

		// Statistics
		admin(r).Get(prefix+"/admin-stats", h.adminStats)
		seller(r).Get(prefix+"/seller-stats", h.sellerStats)
		seller(r).Get(prefix+"/seller-payment-history", h.sellerPaymentHistory)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
