package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
)

const (
	// HeaderKey is the request header carrying the client's idempotency key.
	HeaderKey = "Idempotency-Key"

	// ReplayHeader marks a response served from the cache.
	ReplayHeader = "X-Idempotency-Replay"

	// DefaultTTL is how long a successful write can be replayed.
	DefaultTTL = 24 * time.Hour

	maxBodyBytes = 1 << 20
)

// Middleware replays the first successful response for a repeated
// Idempotency-Key on the same method and path. Reusing a key with a different
// request body is rejected. Requests without the header pass through.
//
// A key is reserved while its first request runs; a concurrent request with
// the same key gets 409 request_in_progress instead of running the handler a
// second time. Reservations are held in this process only.
func Middleware(store Store, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	inflight := &reservations{keys: make(map[string]struct{})}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get(HeaderKey)
			if rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			log := logger.FromContext(r.Context())

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidArgument, "unable to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintOf(body)

			key := scopedKey(r, rawKey)

			serveCached := func() bool {
				cached, ok := store.Get(r.Context(), key)
				if !ok {
					return false
				}
				if cached.Fingerprint != fingerprint {
					log.Warn().Str("path", r.URL.Path).Msg("idempotency.key_reused")
					apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidArgument, "Idempotency-Key was already used with a different request body")
					return true
				}
				replay(w, cached)
				log.Debug().Str("path", r.URL.Path).Msg("idempotency.replayed")
				return true
			}
			if serveCached() {
				return
			}

			if !inflight.reserve(key) {
				log.Warn().Str("path", r.URL.Path).Msg("idempotency.in_progress")
				apierrors.WriteSimpleError(w, apierrors.ErrCodeRequestInProgress, "a request with this Idempotency-Key is still in progress")
				return
			}
			defer inflight.release(key)

			// The first request may have finished between the lookup and the reservation.
			if serveCached() {
				return
			}

			var captured bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status >= 300 {
				return
			}

			headers := make(map[string]string, len(w.Header()))
			for name := range w.Header() {
				headers[name] = w.Header().Get(name)
			}
			resp := &Response{
				StatusCode:  status,
				Headers:     headers,
				Body:        captured.Bytes(),
				Fingerprint: fingerprint,
				CachedAt:    time.Now(),
			}
			if err := store.Set(r.Context(), key, resp, ttl); err != nil {
				log.Warn().Err(err).Msg("idempotency.store_failed")
			}
		})
	}
}

type reservations struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (r *reservations) reserve(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.keys[key]; taken {
		return false
	}
	r.keys[key] = struct{}{}
	return true
}

func (r *reservations) release(key string) {
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
}

func scopedKey(r *http.Request, rawKey string) string {
	return r.Method + ":" + r.URL.Path + ":" + rawKey
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, cached *Response) {
	for name, value := range cached.Headers {
		if name == "X-Request-Id" {
			continue
		}
		w.Header().Set(name, value)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
