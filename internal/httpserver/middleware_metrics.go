package httpserver

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/metrics"
)

// adminMetricsAuth protects /metrics with a static bearer key. An empty key
// leaves the endpoint open.
func adminMetricsAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := []byte(r.Header.Get("Authorization"))
			want := []byte("Bearer " + apiKey)
			if subtle.ConstantTimeCompare(got, want) != 1 {
				apierrors.WriteSimpleError(w, apierrors.ErrCodeUnauthorized, "invalid or missing admin API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestMetrics records count and latency per chi route pattern, so path
// parameters such as emails never become label values.
func requestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
		})
	}
}
