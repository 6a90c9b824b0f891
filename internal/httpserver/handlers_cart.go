package httpserver

import (
	"net/http"
	"strings"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/pkg/responders"
)

func (h *handlers) listCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListCart(r.Context(), strings.TrimSpace(r.URL.Query().Get("email")))
	if err != nil {
		writeStoreError(w, r, "carts.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, items)
}

func (h *handlers) addCartItem(w http.ResponseWriter, r *http.Request) {
	item, err := decodeDocument(r)
	if err != nil {
		writeBodyError(w, r, "carts.add.invalid_body", err)
		return
	}
	if strings.TrimSpace(item.String("email")) == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "email is required")
		return
	}
	if rejectNegative(w, item, "quantity", apierrors.ErrCodeInvalidField) {
		return
	}

	res, err := h.store.AddCartItem(r.Context(), item)
	if err != nil {
		writeStoreError(w, r, "carts.add.insert_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) removeCartItem(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.RemoveCartItem(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "carts.remove.write_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")
	res, err := h.store.ClearCart(r.Context(), email)
	if err != nil {
		writeStoreError(w, r, "carts.clear.write_failed", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Debug().
		Str("email", logger.RedactEmail(email)).
		Int64("deleted", res.DeletedCount).
		Msg("carts.cleared")
	responders.JSON(w, http.StatusOK, res)
}

type updateCartRequest struct {
	Email        string  `json:"email"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Quantity     int     `json:"quantity"`
}

// updateCartItem is keyed by product id and scoped to the buyer named in the
// body, so two buyers holding the same product never touch each other's row.
func (h *handlers) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, "carts.update.invalid_body", err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "email is required")
		return
	}
	if req.Quantity < 0 {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "quantity must not be negative")
		return
	}

	res, err := h.store.UpdateCartItem(r.Context(), pathParam(r, "id"), req.Email, req.PricePerUnit, req.Quantity)
	if err != nil {
		writeStoreError(w, r, "carts.update.write_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}
