package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pharmaplaza/server/internal/errors"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/storage"
)

const maxRequestBody = 1 << 20

var errEmptyBody = errors.New("request body is required")

// decodeJSON decodes a JSON request body into a typed dest. Fields dest does
// not declare are ignored.
func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// decodeDocument decodes a JSON object body into a document that is stored
// as posted. Integral numbers stay integers so quantities do not turn into
// doubles on the way to the database.
func decodeDocument(r *http.Request) (storage.Document, error) {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.UseNumber()
	var doc map[string]any
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if doc == nil {
		return nil, errEmptyBody
	}
	for k, v := range doc {
		doc[k] = normalizeNumbers(v)
	}
	return storage.Document(doc), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeNumbers(inner)
		}
		return t
	default:
		return v
	}
}

// rejectNegative validates an optional numeric field and writes code when it
// is not a number or is below zero. Numeric strings are accepted; the
// document keeps whatever form the client sent.
func rejectNegative(w http.ResponseWriter, doc storage.Document, key string, code apierrors.ErrorCode) bool {
	if doc[key] == nil {
		return false
	}
	n, ok := doc.Number(key)
	switch {
	case !ok:
		apierrors.WriteSimpleError(w, code, key+" must be a number")
	case n < 0:
		apierrors.WriteSimpleError(w, code, key+" must not be negative")
	default:
		return false
	}
	return true
}

// pathParam returns a trimmed chi URL parameter.
func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// chiParamRaw returns a URL parameter unescaped but otherwise untouched, for
// values that must match stored text exactly.
func chiParamRaw(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

// writeBodyError logs and rejects an undecodable request body.
func writeBodyError(w http.ResponseWriter, r *http.Request, event string, err error) {
	log := logger.FromContext(r.Context())
	log.Warn().Err(err).Msg(event)
	apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidArgument, err.Error())
}

// writeStoreError maps storage failures onto the error taxonomy. Only
// unexpected failures are logged at error level.
func writeStoreError(w http.ResponseWriter, r *http.Request, event string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		apierrors.WriteSimpleError(w, apierrors.ErrCodeNotFound, "resource not found")
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg(event)
		apierrors.WriteSimpleError(w, apierrors.ErrCodeDatabaseError, "database operation failed")
	}
}
