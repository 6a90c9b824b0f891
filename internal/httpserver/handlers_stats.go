package httpserver

import (
	"net/http"
	"strings"

	"github.com/pharmaplaza/server/internal/auth"
	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/pkg/responders"
)

func (h *handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.AdminSummary(r.Context())
	if err != nil {
		writeStoreError(w, r, "stats.admin.aggregate_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, summary)
}

// sellerFromQuery resolves the seller a stats request is about. Sellers may
// only read their own figures.
func sellerFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "email query parameter is required")
		return "", false
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || !strings.EqualFold(claims.Email, email) {
		log := logger.FromContext(r.Context())
		log.Warn().
			Str("requested", logger.RedactEmail(email)).
			Msg("stats.seller.identity_mismatch")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeForbidden, "forbidden access")
		return "", false
	}
	return email, true
}

func (h *handlers) sellerStats(w http.ResponseWriter, r *http.Request) {
	email, ok := sellerFromQuery(w, r)
	if !ok {
		return
	}
	summary, err := h.store.SellerSummary(r.Context(), email)
	if err != nil {
		writeStoreError(w, r, "stats.seller.aggregate_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, summary)
}

func (h *handlers) sellerPaymentHistory(w http.ResponseWriter, r *http.Request) {
	email, ok := sellerFromQuery(w, r)
	if !ok {
		return
	}
	history, err := h.store.SellerHistory(r.Context(), email)
	if err != nil {
		writeStoreError(w, r, "stats.history.aggregate_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, history)
}
