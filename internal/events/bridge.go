// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events forwards service notifications to a single observer and
// classifies source connection changes into device events.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

// Message types pushed by the platform service.
const (
	// MsgSourceConnect carries [source, state] where state 1 means a cable
	// was plugged in and 0 that it was removed.
	MsgSourceConnect int32 = 1
	// MsgSignalChange carries [source, signal status].
	MsgSignalChange int32 = 2
)

// Event is a service notification in the coordinator's shape. Source and
// State are lifted from the first two int fields when present.
type Event struct {
	MsgType int32     `json:"msgType"`
	Source  source.ID `json:"source"`
	State   int32     `json:"state"`
	Ints    []int32   `json:"ints,omitempty"`
	Strings []string  `json:"strings,omitempty"`
}

// FromService converts a raw service event.
func FromService(ev tvserver.Event) Event {
	out := Event{
		MsgType: ev.MsgType,
		Source:  source.Invalid,
		Ints:    ev.Ints,
		Strings: ev.Strings,
	}
	if len(ev.Ints) > 0 {
		out.Source = source.ID(ev.Ints[0])
	}
	if len(ev.Ints) > 1 {
		out.State = ev.Ints[1]
	}
	return out
}

// Observer receives events synchronously on the transport goroutine.
type Observer interface {
	OnTvEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnTvEvent(ev Event) { f(ev) }

// Bridge holds at most one observer. Registering replaces the previous
// observer without draining deliveries already in progress.
type Bridge struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	observer Observer
}

// NewBridge returns a Bridge with no observer registered.
func NewBridge() *Bridge {
	return &Bridge{logger: xglog.WithComponent("events")}
}

// Register installs ob, replacing any previous observer. A nil ob
// unregisters.
func (b *Bridge) Register(ob Observer) {
	b.mu.Lock()
	b.observer = ob
	b.mu.Unlock()
}

// Deliver hands a service event to the observer. It is the
// tvserver.Callback the connection manager installs.
func (b *Bridge) Deliver(raw tvserver.Event) {
	b.mu.RLock()
	ob := b.observer
	b.mu.RUnlock()

	if ob == nil {
		metrics.RecordEventDropped(raw.MsgType, "no_observer")
		b.logger.Debug().
			Str(xglog.FieldEvent, "events.dropped").
			Int32(xglog.FieldMsgType, raw.MsgType).
			Msg("no observer registered")
		return
	}

	ob.OnTvEvent(FromService(raw))
	metrics.RecordEventDelivered(raw.MsgType)
}
