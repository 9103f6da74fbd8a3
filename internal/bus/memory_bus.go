// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
)

// MemoryBus is an in-memory pub/sub. It is not durable; a subscriber that
// falls behind makes Publish wait until the publish context is done.
type MemoryBus struct {
	buffer int

	mu   sync.RWMutex
	subs map[string][]*memSub
}

const (
	dropLogEvery  = 100
	defaultBuffer = 64
)

var dropCount atomic.Uint64

// NewMemoryBus returns a bus whose subscribers buffer up to buffer messages.
// A non-positive buffer selects the default.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryBus{buffer: buffer, subs: make(map[string][]*memSub)}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

// Publish delivers msg to every subscriber of topic. Callers bound ctx:
// a full subscriber holds Publish, and its Close, until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs[topic] {
		select {
		case s.ch <- msg:
			continue
		default:
		}
		select {
		case s.ch <- msg:
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			metrics.IncBusDropReason(topic, reason)
			count := dropCount.Add(1)
			if count%dropLogEvery == 1 {
				log.L().Warn().
					Str(log.FieldEvent, "bus.dropped").
					Str("topic", topic).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	return nil
}

// Subscribe registers a subscriber on topic. The subscription ends when
// Close is called or ctx is done.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.buffer), done: make(chan struct{})}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	n := len(b.subs[topic])
	b.mu.Unlock()
	metrics.BusSubscribers.WithLabelValues(topic).Set(float64(n))

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message

	once sync.Once
	done chan struct{}
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		n := len(out)
		// Publish holds the read lock while sending, so closing here cannot
		// race a send.
		close(s.ch)
		s.b.mu.Unlock()

		close(s.done)
		metrics.BusSubscribers.WithLabelValues(s.topic).Set(float64(n))
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
