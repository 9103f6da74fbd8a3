// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus fans notifications out to any number of in-process
// subscribers, such as server-sent event streams.
package bus

import "context"

// Topics published by the daemon.
const (
	TopicTvEvents     = "tv.events"
	TopicDeviceEvents = "tv.devices"
)

// Message is an opaque payload.
type Message interface{}

type Subscriber interface {
	// C returns a read-only message channel. It is closed by Close.
	C() <-chan Message
	// Close unsubscribes.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
