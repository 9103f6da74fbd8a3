// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/events"
	xglog "github.com/ManuGH/tvinput/internal/log"
)

const defaultPublishTimeout = 100 * time.Millisecond

// DeviceClassifier turns platform notifications into device events.
type DeviceClassifier interface {
	DeviceEvent(ev events.Event) (events.DeviceEvent, bool)
}

// EventPublisher is the single registered observer. It forwards every
// notification to the bus and, when it describes a device change, the
// classified device event as well.
type EventPublisher struct {
	bus      bus.Bus
	classify DeviceClassifier
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewEventPublisher returns a publisher; classify may be nil.
func NewEventPublisher(b bus.Bus, classify DeviceClassifier, timeout time.Duration) *EventPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &EventPublisher{
		bus:      b,
		classify: classify,
		timeout:  timeout,
		logger:   xglog.WithComponent("publisher"),
	}
}

// OnTvEvent runs on the delivery path, so every publish is bounded.
func (p *EventPublisher) OnTvEvent(ev events.Event) {
	p.publish(bus.TopicTvEvents, ev, ev.MsgType)
	if p.classify == nil {
		return
	}
	if dev, ok := p.classify.DeviceEvent(ev); ok {
		p.publish(bus.TopicDeviceEvents, dev, ev.MsgType)
	}
}

func (p *EventPublisher) publish(topic string, msg bus.Message, msgType int32) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, topic, msg); err != nil {
		p.logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "publisher.dropped").
			Str("topic", topic).
			Int32(xglog.FieldMsgType, msgType).
			Msg("event not delivered to all subscribers")
	}
}
