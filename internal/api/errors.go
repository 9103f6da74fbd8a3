// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

var (
	errMissingWantActive = errors.New("wantActive query parameter is required")
	errInvalidBody       = errors.New("invalid request body")
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeError maps err onto an HTTP status. Platform connectivity problems
// are 503 so callers retry; failures reported by the platform are 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.request_failed").
			Str(log.FieldPath, r.URL.Path).
			Int("status", code).
			Msg("request failed")
	}
	writeJSON(w, code, errorBody{Error: err.Error(), RequestID: log.RequestIDFromContext(r.Context())})
}

func httpStatus(err error) int {
	var svcErr *tvserver.ServiceError
	switch {
	case errors.Is(err, source.ErrUnknownSource),
		errors.Is(err, errMissingWantActive),
		errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, status.ErrClosed),
		errors.Is(err, status.ErrServiceNotPublished),
		status.IsTransient(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &svcErr), errors.Is(err, tvserver.ErrShortReply):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
