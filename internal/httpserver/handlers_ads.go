package httpserver

import (
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/storage"
	"github.com/pharmaplaza/server/pkg/responders"
)

func (h *handlers) listAdvertisements(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	ads, err := h.store.ListAdvertisements(r.Context(), status)
	if err != nil {
		writeStoreError(w, r, "ads.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, ads)
}

func (h *handlers) advertisementsBySeller(w http.ResponseWriter, r *http.Request) {
	ads, err := h.store.AdvertisementsBySeller(r.Context(), pathParam(r, "email"))
	if err != nil {
		writeStoreError(w, r, "ads.seller.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, ads)
}

func (h *handlers) createAdvertisement(w http.ResponseWriter, r *http.Request) {
	var ad storage.Advertisement
	if err := decodeJSON(r, &ad); err != nil {
		writeBodyError(w, r, "ads.create.invalid_body", err)
		return
	}
	if strings.TrimSpace(ad.SellerEmail) == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "sellerEmail is required")
		return
	}
	switch ad.Status {
	case "", storage.AdStatusApproved, storage.AdStatusHidden:
	default:
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "status must be Approved or Hidden")
		return
	}

	res, err := h.store.CreateAdvertisement(r.Context(), ad)
	if err != nil {
		writeStoreError(w, r, "ads.create.insert_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}

// toggleAdvertisement flips Approved and Hidden. It is the one lookup that
// answers 404 for a missing document.
func (h *handlers) toggleAdvertisement(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	res, err := h.store.ToggleAdvertisement(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeAdvertisementNotFound, "Advertisement not found")
		return
	}
	if err != nil {
		writeStoreError(w, r, "ads.toggle.write_failed", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().Str("advertisement_id", id).Msg("ads.toggled")
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListReviews(r.Context())
	if err != nil {
		writeStoreError(w, r, "reviews.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, reviews)
}

func (h *handlers) listBlogs(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.store.ListBlogs(r.Context())
	if err != nil {
		writeStoreError(w, r, "blogs.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, blogs)
}
