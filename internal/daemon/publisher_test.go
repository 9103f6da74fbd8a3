// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/events"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/source"
)

type classifyFunc func(events.Event) (events.DeviceEvent, bool)

func (f classifyFunc) DeviceEvent(ev events.Event) (events.DeviceEvent, bool) { return f(ev) }

func subscribe(t *testing.T, b bus.Bus, topic string) bus.Subscriber {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sub, err := b.Subscribe(ctx, topic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func receive(t *testing.T, sub bus.Subscriber) bus.Message {
	t.Helper()
	select {
	case msg := <-sub.C():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
		return nil
	}
}

func TestEventPublisherForwardsBothTopics(t *testing.T) {
	b := bus.NewMemoryBus(4)
	tv := subscribe(t, b, bus.TopicTvEvents)
	dev := subscribe(t, b, bus.TopicDeviceEvents)

	p := NewEventPublisher(b, classifyFunc(func(ev events.Event) (events.DeviceEvent, bool) {
		raw, ok := events.FromSourceConnect(ev)
		if !ok {
			return events.DeviceEvent{}, false
		}
		return events.Classify(raw)
	}), 0)

	connect := events.Event{MsgType: events.MsgSourceConnect, Source: source.HDMI3, State: 1, Ints: []int32{int32(source.HDMI3), 1}}
	p.OnTvEvent(connect)

	assert.Equal(t, connect, receive(t, tv))
	got, ok := receive(t, dev).(events.DeviceEvent)
	require.True(t, ok)
	assert.Equal(t, source.HDMI3, got.Device.DeviceID)
	assert.Equal(t, events.CableConnected, got.Device.CableStatus)

	// Signal changes are not device events.
	signal := events.Event{MsgType: events.MsgSignalChange, Source: source.HDMI3}
	p.OnTvEvent(signal)
	assert.Equal(t, signal, receive(t, tv))
	select {
	case msg := <-dev.C():
		t.Fatalf("unexpected device event %v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventPublisherBoundsSlowSubscribers(t *testing.T) {
	b := bus.NewMemoryBus(1)
	slow := subscribe(t, b, bus.TopicTvEvents)
	p := NewEventPublisher(b, nil, 10*time.Millisecond)

	before := testutil.ToFloat64(metrics.BusDroppedTotal.WithLabelValues(bus.TopicTvEvents, "timeout"))
	start := time.Now()
	p.OnTvEvent(events.Event{MsgType: events.MsgSourceConnect})
	p.OnTvEvent(events.Event{MsgType: events.MsgSourceConnect})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BusDroppedTotal.WithLabelValues(bus.TopicTvEvents, "timeout")))
	assert.Len(t, slow.C(), 1)
}
