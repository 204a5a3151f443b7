package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/apperr"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Status    int               `json:"status"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps err onto a status code and writes the envelope.
// Internal failures are logged and reported without their cause.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := errorBody{
		Error:     errorCode(err, status),
		Message:   err.Error(),
		Status:    status,
		RequestID: chimw.GetReqID(r.Context()),
	}

	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.KindValidation {
		body.Fields = ae.Fields
	}

	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout && status != http.StatusServiceUnavailable {
		h.logger.Error("request failed",
			zap.String("request_id", body.RequestID),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body.Message = "internal server error"
	}

	respondJSON(w, status, body)
}

func errorCode(err error, status int) string {
	var pe *apperr.ProviderError
	if errors.As(err, &pe) {
		if status == http.StatusGatewayTimeout {
			return "provider_timeout"
		}
		return "provider_error"
	}
	kind := apperr.KindOf(err)
	if kind == apperr.KindProvider {
		return "upstream_error"
	}
	return string(kind)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched
// when optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pageParams reads limit and offset query parameters.
func pageParams(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageLimit
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, apperr.Validation("invalid limit %q", raw)
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, apperr.Validation("invalid offset %q", raw)
		}
	}
	return limit, offset, nil
}
