// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/tvinput/internal/log"
)

// RateLimit allows limit requests per window for each client IP. Rejected
// requests get 429 with the same JSON error body the API uses elsewhere.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(max(1, int(window.Seconds())))
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Debug().
				Str(log.FieldEvent, "api.rate_limited").
				Str(log.FieldPath, r.URL.Path).
				Msg("request rejected by rate limit")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(struct {
				Error     string `json:"error"`
				RequestID string `json:"requestId,omitempty"`
			}{"rate limit exceeded", log.RequestIDFromContext(r.Context())})
		}),
	)
}

// APIRateLimit is RateLimit with a one minute window.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	return RateLimit(perMinute, time.Minute)
}
