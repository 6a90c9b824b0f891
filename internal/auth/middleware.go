package auth

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
)

type claimsKey struct{}

// UserLookup resolves the stored role for an email. found is false when no
// user document exists.
type UserLookup interface {
	RoleOf(ctx context.Context, email string) (role Role, found bool, err error)
}

// FailureRecorder is notified of rejected requests (metrics).
type FailureRecorder interface {
	ObserveAuthFailure(reason string)
}

// Gate holds the verifier and lookup used by the auth middleware.
type Gate struct {
	issuer  *Issuer
	users   UserLookup
	metrics FailureRecorder
}

// NewGate creates a Gate. metrics may be nil.
func NewGate(issuer *Issuer, users UserLookup, metrics FailureRecorder) *Gate {
	return &Gate{issuer: issuer, users: users, metrics: metrics}
}

// RequireToken rejects requests without a valid bearer token and stores the
// decoded claims in the request context.
func (g *Gate) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			g.reject(w, r, "missing_token", apierrors.ErrCodeUnauthorized, "unauthorized access")
			return
		}
		claims, err := g.issuer.Verify(raw)
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Debug().Err(err).Msg("auth.token.verify_failed")
			g.reject(w, r, "invalid_token", apierrors.ErrCodeUnauthorized, "unauthorized access")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole must run after RequireToken. It loads the caller's user record
// on every request and rejects callers whose stored role differs from role.
func (g *Gate) RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Email == "" {
				g.reject(w, r, "missing_claims", apierrors.ErrCodeUnauthorized, "unauthorized access")
				return
			}
			stored, found, err := g.users.RoleOf(r.Context(), claims.Email)
			if err != nil {
				log := logger.FromContext(r.Context())
				log.Error().Err(err).
					Str("email", logger.RedactEmail(claims.Email)).
					Msg("auth.role.lookup_failed")
				apierrors.WriteSimpleError(w, apierrors.ErrCodeDatabaseError, "failed to verify role")
				return
			}
			if !found || stored != role {
				g.reject(w, r, "role_mismatch", apierrors.ErrCodeForbidden, "forbidden access")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, reason string, code apierrors.ErrorCode, msg string) {
	if g.metrics != nil {
		g.metrics.ObserveAuthFailure(reason)
	}
	log := logger.FromContext(r.Context())
	log.Debug().Str("reason", reason).Msg("auth.rejected")
	apierrors.WriteSimpleError(w, code, msg)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by RequireToken.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}
