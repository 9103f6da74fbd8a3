// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvinput_connection_state",
		Help: "Connection state by service (active state=1; others 0)",
	}, []string{"service", "state"})

	ConnectionGeneration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvinput_connection_generation",
		Help: "Generation of the current connection handle",
	}, []string{"service"})

	ConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_connect_attempts_total",
		Help: "Connection acquisition attempts by result",
	}, []string{"service", "result"})

	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_reconnects_total",
		Help: "Completed reconnects after the remote service died",
	}, []string{"service"})

	RemoteCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_remote_calls_total",
		Help: "Remote calls by operation and outcome (ok, stale, transport, service, not_connected, closed, canceled)",
	}, []string{"service", "op", "outcome"})

	ReconcileDivergenceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvinput_reconcile_divergence_total",
		Help: "Reconnects after which the remote current input differed from the arbiter's current source",
	})
)

var connectionStates = []string{"disconnected", "connecting", "connected", "closed"}

// SetConnectionState records the active connection state for a service.
func SetConnectionState(service, state string) {
	for _, s := range connectionStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		connectionState.WithLabelValues(service, s).Set(value)
	}
}

// ConnectionStateValue exposes the gauge child for tests.
func ConnectionStateValue(service, state string) prometheus.Gauge {
	return connectionState.WithLabelValues(service, state)
}
