// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/go-chi/chi/v5"

	xglog "github.com/ManuGH/tvinput/internal/log"
)

// StackConfig selects the optional layers of the ingress stack. Recovery and
// request ids are always on.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
}

// NewRouter returns a chi router with the ingress stack installed. Panics
// are caught outermost so every other layer still sees a response; the
// request id is set before metrics, tracing and access logs read it.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer, RequestID)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(xglog.Middleware())
	}
	return r
}
