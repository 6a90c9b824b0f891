package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pharmaplaza/server/internal/catalog"
	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/storage"
	"github.com/pharmaplaza/server/pkg/responders"
)

// parseCatalogQuery rejects malformed paging before any query runs.
func parseCatalogQuery(w http.ResponseWriter, r *http.Request) (catalog.Query, bool) {
	q, err := catalog.ParseQuery(r.URL.Query())
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuery) {
			apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidArgument, err.Error())
			return catalog.Query{}, false
		}
		writeStoreError(w, r, "products.query.parse_failed", err)
		return catalog.Query{}, false
	}
	return q, true
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	q, ok := parseCatalogQuery(w, r)
	if !ok {
		return
	}
	products, err := h.store.ListProducts(r.Context(), q)
	if err != nil {
		writeStoreError(w, r, "products.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, products)
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (h *handlers) countProducts(w http.ResponseWriter, r *http.Request) {
	q, ok := parseCatalogQuery(w, r)
	if !ok {
		return
	}
	n, err := h.store.CountProducts(r.Context(), q)
	if err != nil {
		writeStoreError(w, r, "products.count.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	p, err := decodeDocument(r)
	if err != nil {
		writeBodyError(w, r, "products.create.invalid_body", err)
		return
	}
	if strings.TrimSpace(p.String("name")) == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "name is required")
		return
	}
	if rejectNegative(w, p, "pricePerUnit", apierrors.ErrCodeInvalidAmount) {
		return
	}

	res, err := h.store.CreateProduct(r.Context(), p)
	if err != nil {
		writeStoreError(w, r, "products.create.insert_failed", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().
		Str("seller", logger.RedactEmail(p.String("sellerEmail"))).
		Str("category", p.String("categoryName")).
		Msg("products.created")
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, "categories.list.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, categories)
}

// productsByCategory matches categoryName exactly, case included.
func (h *handlers) productsByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ProductsByCategory(r.Context(), chiParamRaw(r, "key"))
	if err != nil {
		writeStoreError(w, r, "categories.products.query_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, products)
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var c storage.Category
	if err := decodeJSON(r, &c); err != nil {
		writeBodyError(w, r, "categories.create.invalid_body", err)
		return
	}
	if strings.TrimSpace(c.CategoryName) == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeMissingField, "categoryName is required")
		return
	}
	res, err := h.store.CreateCategory(r.Context(), c)
	if err != nil {
		writeStoreError(w, r, "categories.create.insert_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	var c storage.Category
	if err := decodeJSON(r, &c); err != nil {
		writeBodyError(w, r, "categories.update.invalid_body", err)
		return
	}
	res, err := h.store.UpdateCategory(r.Context(), pathParam(r, "key"), c)
	if err != nil {
		writeStoreError(w, r, "categories.update.write_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.DeleteCategory(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, "categories.delete.write_failed", err)
		return
	}
	responders.JSON(w, http.StatusOK, res)
}
