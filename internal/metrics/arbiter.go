// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArbiterOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_arbiter_operations_total",
		Help: "Arbiter operations by operation and result",
	}, []string{"op", "result"})

	ArbiterBusyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_arbiter_busy_total",
		Help: "Conflict checks that returned BUSY, by the queue the request was parked on",
	}, []string{"queue"})

	ArbiterQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvinput_arbiter_queue_depth",
		Help: "Pending entries per arbiter queue",
	}, []string{"queue"})

	ArbiterStaleOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_arbiter_stale_outcomes_total",
		Help: "Remote outcomes that settled after arbiter state had already moved on",
	}, []string{"op"})

	ArbiterRemoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tvinput_arbiter_remote_duration_seconds",
		Help:    "Latency of remote calls issued on behalf of arbiter operations",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"op"})
)

// RecordArbiterOp counts one arbiter operation.
func RecordArbiterOp(op, result string) {
	if result == "" {
		result = "unknown"
	}
	ArbiterOpsTotal.WithLabelValues(op, result).Inc()
}

// SetQueueDepths publishes the current depth of each arbiter queue.
func SetQueueDepths(start, stop, hold int) {
	ArbiterQueueDepth.WithLabelValues("start").Set(float64(start))
	ArbiterQueueDepth.WithLabelValues("stop").Set(float64(stop))
	ArbiterQueueDepth.WithLabelValues("hold").Set(float64(hold))
}
