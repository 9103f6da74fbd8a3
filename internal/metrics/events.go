// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"cmp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_events_delivered_total",
		Help: "Service events handed to the registered observer",
	}, []string{"msg_type"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_events_dropped_total",
		Help: "Service events dropped before reaching an observer, by reason",
	}, []string{"msg_type", "reason"})

	// Fan-out of delivered events to API subscribers.
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_bus_dropped_total",
		Help: "Events not handed to a bus subscriber, by topic and reason",
	}, []string{"topic", "reason"})

	BusSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvinput_bus_subscribers",
		Help: "Current bus subscribers per topic",
	}, []string{"topic"})
)

// RecordEventDelivered counts an event that reached the observer.
func RecordEventDelivered(msgType int32) {
	EventsDeliveredTotal.WithLabelValues(strconv.Itoa(int(msgType))).Inc()
}

// RecordEventDropped counts an event that was discarded.
func RecordEventDropped(msgType int32, reason string) {
	EventsDroppedTotal.WithLabelValues(strconv.Itoa(int(msgType)), reason).Inc()
}

// IncBusDropReason counts a bus message that a subscriber did not receive.
// Empty labels are reported as "unknown".
func IncBusDropReason(topic, reason string) {
	BusDroppedTotal.WithLabelValues(cmp.Or(topic, "unknown"), cmp.Or(reason, "unknown")).Inc()
}
