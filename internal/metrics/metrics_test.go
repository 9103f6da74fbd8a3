// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestSetConnectionStateIsOneHot(t *testing.T) {
	metrics.SetConnectionState("tvserver-test", "connecting")
	metrics.SetConnectionState("tvserver-test", "connected")

	assert.Equal(t, 1.0, gaugeValue(t, metrics.ConnectionStateValue("tvserver-test", "connected")))
	assert.Equal(t, 0.0, gaugeValue(t, metrics.ConnectionStateValue("tvserver-test", "connecting")))
	assert.Equal(t, 0.0, gaugeValue(t, metrics.ConnectionStateValue("tvserver-test", "disconnected")))
}

func TestSetQueueDepths(t *testing.T) {
	metrics.SetQueueDepths(3, 0, 1)
	assert.Equal(t, 3.0, gaugeValue(t, metrics.ArbiterQueueDepth.WithLabelValues("start")))
	assert.Equal(t, 1.0, gaugeValue(t, metrics.ArbiterQueueDepth.WithLabelValues("hold")))
}

func TestPromhttpExposure(t *testing.T) {
	metrics.RecordArbiterOp("start", "ok")
	metrics.RecordEventDelivered(3)
	metrics.IncBusDropReason("", "")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	for _, name := range []string{
		"tvinput_arbiter_operations_total",
		"tvinput_events_delivered_total",
		`tvinput_bus_dropped_total{reason="unknown",topic="unknown"}`,
	} {
		assert.True(t, strings.Contains(string(body), name), "missing %s", name)
	}
}
