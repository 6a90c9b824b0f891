package httpserver

import (
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	stripesvc "github.com/pharmaplaza/server/internal/stripe"
	"github.com/pharmaplaza/server/pkg/responders"
)

type paymentIntentRequest struct {
	Price *float64 `json:"price"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

func (h *handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req paymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, "payments.intent.invalid_body", err)
		return
	}
	if req.Price == nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "price is required")
		return
	}
	if h.intents == nil {
		log.Error().Msg("payments.intent.not_configured")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeConfigError, "payments are not configured")
		return
	}

	secret, err := h.intents.CreatePaymentIntent(r.Context(), *req.Price)
	switch {
	case err == nil:
	case errors.Is(err, stripesvc.ErrInvalidAmount):
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidAmount, "price must be a positive amount")
		return
	case errors.Is(err, stripesvc.ErrNotConfigured):
		log.Error().Err(err).Msg("payments.intent.not_configured")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeConfigError, "payments are not configured")
		return
	default:
		log.Error().Err(err).Float64("price", *req.Price).Msg("payments.intent.create_failed")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeStripeError, "payment provider request failed")
		return
	}

	responders.JSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: secret})
}

func (h *handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	p, err := decodeDocument(r)
	if err != nil {
		writeBodyError(w, r, "payments.create.invalid_body", err)
		return
	}
	if strings.TrimSpace(p.String("email")) == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "email is required")
		return
	}
	if rejectNegative(w, p, "price", apierrors.ErrCodeInvalidAmount) {
		return
	}
	if d := p["date"]; d != nil && d != "" && p.Time("date").IsZero() {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "date must be an RFC 3339 timestamp")
		return
	}

	res, err := h.store.CreatePayment(r.Context(), p)
	if err != nil {
		writeStoreError(w, r, "payments.create.insert_failed", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().
		Str("email", logger.RedactEmail(p.String("email"))).
		Str("transaction_id", p.String("transactionId")).
		Msg("payments.recorded")
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.store.ListPayments(r.Context())
	if err != nil {
		writeStoreError(w, r, "payments.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, payments)
}

func (h *handlers) paymentsByEmail(w http.ResponseWriter, r *http.Request) {
	payments, err := h.store.PaymentsByEmail(r.Context(), pathParam(r, "email"))
	if err != nil {
		writeStoreError(w, r, "payments.buyer.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, payments)
}

func (h *handlers) markPaymentPaid(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	res, err := h.store.MarkPaymentPaid(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "payments.mark_paid.write_failed", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().Str("payment_id", id).Msg("payments.marked_paid")
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.store.ListInvoices(r.Context(), strings.TrimSpace(r.URL.Query().Get("email")))
	if err != nil {
		writeStoreError(w, r, "invoices.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, invoices)
}

// createInvoice stores the invoice and purges the cart items it names.
func (h *handlers) createInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := decodeDocument(r)
	if err != nil {
		writeBodyError(w, r, "invoices.create.invalid_body", err)
		return
	}

	cartIDs, _ := inv.Strings("cartIds")
	res, err := h.store.CreateInvoice(r.Context(), inv)
	if err != nil {
		writeStoreError(w, r, "invoices.create.write_failed", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().
		Str("email", logger.RedactEmail(inv.String("email"))).
		Int("cart_items", len(cartIDs)).
		Int64("purged", res.DeleteResult.DeletedCount).
		Msg("invoices.created")
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.DeleteInvoice(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "invoices.delete.write_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}
