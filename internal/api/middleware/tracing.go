// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/tvinput/internal/telemetry"
)

// Tracing wraps the handler with OpenTelemetry HTTP instrumentation. Spans
// continue a W3C trace context sent by the caller and are named after the
// matched chi route; otelhttp renames the span once routing has set it.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withStatus := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newRecorder(w)
			next.ServeHTTP(rw, r)

			span := trace.SpanFromContext(r.Context())
			span.SetAttributes(telemetry.HTTPAttributes(r.Method, routePattern(r), rw.status)...)
		})
		return otelhttp.NewHandler(
			withStatus,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanName),
		)
	}
}

// spanName is "METHOD route". Before routing the route is still unmatched.
func spanName(_ string, r *http.Request) string {
	return r.Method + " " + routePattern(r)
}

// shouldTrace skips probe endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}
