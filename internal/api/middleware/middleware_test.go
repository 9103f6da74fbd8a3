// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"bytes"
	"encoding/json"
	"os"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/telemetry"
)

func TestRequestIDAssignedAndPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "caller-id")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "caller-id", seen)
	assert.Equal(t, "caller-id", w.Header().Get(HeaderRequestID))
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{Level: "info", Output: os.Stdout}) })
	return &buf
}

func TestRecovererAnswers500(t *testing.T) {
	logs := captureLogs(t)
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, w.Header().Get(HeaderRequestID), body["requestId"])
	assert.Contains(t, logs.String(), `"event":"panic.recovered"`)
	assert.Contains(t, logs.String(), `"component":"panic-recovery"`)
}

func TestMetricsUseRoutePattern(t *testing.T) {
	r := NewRouter(StackConfig{EnableMetrics: true})
	r.Get("/api/v1/sources/{id}/check", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/sources/{id}/check", "202")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"HDMI1", "HDMI2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sources/"+id+"/check", nil))
		require.Equal(t, http.StatusAccepted, w.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestTracingRecordsRoute(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := NewRouter(StackConfig{TracingService: "tvinput-api"})
	r.Get("/api/v1/sources/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	for _, id := range []string{"TV", "HDMI2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/sources/"+id, nil))
	}

	spans := rec.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "GET /api/v1/sources/{id}", span.Name(), "one span name per route")
		assert.Contains(t, span.Attributes(), attribute.Int(telemetry.HTTPStatusKey, 500))
	}
}

func TestRateLimitEnforcesLimit(t *testing.T) {
	logs := captureLogs(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := RequestID(RateLimit(3, time.Second)(handler))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()
	limited.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"requestId":"`+w.Header().Get(HeaderRequestID)+`"`)
	assert.Contains(t, logs.String(), `"event":"api.rate_limited"`)

	other := httptest.NewRequest(http.MethodGet, "/test", nil)
	other.RemoteAddr = "192.168.1.2:12345"
	w = httptest.NewRecorder()
	limited.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own budget")
}

func TestStackWithoutOptionalMiddleware(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

var _ chi.Router = NewRouter(StackConfig{})
