// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package connection supervises the connection to a platform service: it
// acquires a client with unbounded retry, re-registers the event callback on
// every new connection and reconnects after the remote process dies.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/tvinput/internal/fsm"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/telemetry"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

// Backoff policies.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

const (
	defaultService       = "tvserver"
	defaultConnectType   = "hal"
	defaultRetryInterval = 200 * time.Millisecond
	defaultDeathDelay    = 200 * time.Millisecond
	defaultMaxInterval   = 5 * time.Second
	waitLogInterval      = 10 * time.Second
)

// Options configures a Manager. Zero durations select the defaults.
type Options struct {
	Directory   tvserver.Directory
	Service     string
	ConnectType string

	RetryInterval time.Duration
	DeathDelay    time.Duration
	Backoff       string
	MaxInterval   time.Duration

	// CallTimeout bounds each remote call; zero means no bound.
	CallTimeout time.Duration

	// OnEvent receives events pushed on the current connection. It runs on
	// the connection's read goroutine and must not call the Manager
	// synchronously.
	OnEvent tvserver.Callback

	Tracer trace.Tracer
}

// Hook runs after a connection has been established. generation identifies
// the handle it was established on.
type Hook func(ctx context.Context, generation uint64)

type handle struct {
	client     *tvserver.Client
	generation uint64
}

// Manager owns the current connection handle. It implements tvserver.Caller.
type Manager struct {
	opts    Options
	logger  zerolog.Logger
	tracer  trace.Tracer
	machine *fsm.Machine[State, trigger]
	waitLog rate.Sometimes

	mu        sync.RWMutex
	cur       *handle
	gen       uint64
	connected chan struct{}
	started   bool
	closed    bool

	hookMu sync.Mutex
	hooks  []Hook
	hookWG sync.WaitGroup

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// New creates a Manager. Nothing is dialed until Start or Connect.
func New(opts Options) *Manager {
	if opts.Service == "" {
		opts.Service = defaultService
	}
	if opts.ConnectType == "" {
		opts.ConnectType = defaultConnectType
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.DeathDelay <= 0 {
		opts.DeathDelay = defaultDeathDelay
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaultMaxInterval
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.Tracer("github.com/ManuGH/tvinput/internal/connection")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		opts: opts,
		logger: xglog.WithComponent("connection").With().
			Str(xglog.FieldServiceName, opts.Service).
			Logger(),
		tracer:    opts.Tracer,
		machine:   newMachine(),
		waitLog:   rate.Sometimes{First: 1, Interval: waitLogInterval},
		connected: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.machine.Observe(m.onTransition)
	metrics.SetConnectionState(opts.Service, string(StateDisconnected))
	return m
}

// Service returns the name of the supervised service.
func (m *Manager) Service() string { return m.opts.Service }

// State returns the current reconnection state.
func (m *Manager) State() State { return m.machine.State() }

// Generation returns the generation of the most recently established
// handle, 0 before the first connection.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// Connected reports whether a live handle is installed.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil
}

// OnConnected registers h to run after every established connection,
// including reconnects. Hooks registered after a connection was established
// first run on the next one.
func (m *Manager) OnConnected(h Hook) {
	m.hookMu.Lock()
	m.hooks = append(m.hooks, h)
	m.hookMu.Unlock()
}

// Start launches the supervisor. It returns immediately.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.started = true
		m.mu.Unlock()
		go m.supervise()
	})
}

// Connect starts the supervisor and blocks until the first connection is
// established, ctx is done or the Manager is closed.
func (m *Manager) Connect(ctx context.Context) error {
	m.Start()
	return m.WaitConnected(ctx)
}

// WaitConnected blocks until a live handle is installed.
func (m *Manager) WaitConnected(ctx context.Context) error {
	for {
		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			return status.ErrClosed
		}
		if m.cur != nil {
			m.mu.RUnlock()
			return nil
		}
		ch := m.connected
		m.mu.RUnlock()

		select {
		case <-ch:
		case <-m.ctx.Done():
			return status.ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Call performs op on the current handle. Transport failures are returned
// as *status.RemoteError wrapping ErrStaleConnection when the handle died or
// was superseded during the call, ErrTransport otherwise. Failures reported
// by the service itself are returned as *tvserver.ServiceError.
func (m *Manager) Call(ctx context.Context, op string, args tvserver.Args) (tvserver.Reply, error) {
	m.mu.RLock()
	h, closed, gen := m.cur, m.closed, m.gen
	m.mu.RUnlock()

	if closed {
		m.recordCall(op, "closed")
		return tvserver.Reply{}, &status.RemoteError{Sentinel: status.ErrClosed, Op: op, Generation: gen}
	}
	if h == nil {
		m.recordCall(op, "not_connected")
		return tvserver.Reply{}, &status.RemoteError{Sentinel: status.ErrNotConnected, Op: op, Generation: gen}
	}

	ctx, span := m.tracer.Start(ctx, "tvserver."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.RemoteCallAttributes(m.opts.Service, op, h.generation)...),
	)
	defer span.End()

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	reply, err := h.client.Call(callCtx, op, args)
	outcome, err := m.classify(h, op, err)
	m.recordCall(op, outcome)

	span.SetAttributes(telemetry.RemoteOutcomeAttributes(outcome, int32(reply.Result))...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if outcome == "stale" || outcome == "transport" {
			m.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "connection.call_failed").
				Str(xglog.FieldOp, op).
				Uint64(xglog.FieldGeneration, h.generation).
				Str("outcome", outcome).
				Msg("remote call failed")
		}
	}
	return reply, err
}

// Close stops the supervisor, closes the live handle and moves the Manager
// to CLOSED. Later calls fail with ErrClosed.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.cancel()

		m.mu.Lock()
		started := m.started
		m.closed = true
		m.mu.Unlock()
		if started {
			<-m.done
		}
		m.hookWG.Wait()

		m.mu.Lock()
		h := m.cur
		m.cur = nil
		m.mu.Unlock()
		if h != nil {
			_ = h.client.Close()
		}

		if _, err := m.machine.Fire(triggerClose); err != nil {
			m.logger.Debug().Err(err).Str(xglog.FieldEvent, "connection.close_transition").Msg("close transition skipped")
		}
		m.logger.Info().Str(xglog.FieldEvent, "connection.closed").Msg("connection manager closed")
	})
	return nil
}

func (m *Manager) supervise() {
	defer close(m.done)

	for {
		h, err := m.acquire()
		if err != nil {
			return
		}
		m.install(h)

		select {
		case <-h.client.Died():
			m.drop(h)
		case <-m.ctx.Done():
			_ = h.client.Close()
			return
		}

		timer := time.NewTimer(m.opts.DeathDelay)
		select {
		case <-timer.C:
		case <-m.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// acquire dials until a handle with a registered callback is obtained or
// the Manager is closed.
func (m *Manager) acquire() (*handle, error) {
	if _, err := m.machine.Fire(triggerDial); err != nil {
		return nil, err
	}

	attempt := 0
	op := func() (*handle, error) {
		attempt++
		h, err := m.dial()
		if err != nil {
			metrics.ConnectAttemptsTotal.WithLabelValues(m.opts.Service, attemptResult(err)).Inc()
			return nil, err
		}
		metrics.ConnectAttemptsTotal.WithLabelValues(m.opts.Service, "ok").Inc()
		return h, nil
	}

	return backoff.Retry(m.ctx, op,
		backoff.WithBackOff(m.newBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.waitLog.Do(func() {
				m.logger.Info().
					Err(err).
					Str(xglog.FieldEvent, "connection.waiting").
					Int(xglog.FieldAttempt, attempt).
					Dur("retry_in", next).
					Msg("waiting for service")
			})
		}),
	)
}

func (m *Manager) dial() (*handle, error) {
	path, err := m.opts.Directory.Lookup(m.opts.Service)
	if err != nil {
		return nil, err
	}
	client, err := tvserver.Dial(m.ctx, path)
	if err != nil {
		return nil, err
	}

	gen := m.Generation() + 1
	ctx, cancel := m.callContext(m.ctx)
	defer cancel()
	if err := client.Subscribe(ctx, m.opts.ConnectType, m.eventsFor(gen)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &handle{client: client, generation: gen}, nil
}

func (m *Manager) install(h *handle) {
	if _, err := m.machine.Fire(triggerEstablished); err != nil {
		m.logger.Debug().Err(err).Str(xglog.FieldEvent, "connection.established_transition").Msg("transition skipped")
	}

	m.mu.Lock()
	m.cur = h
	m.gen = h.generation
	close(m.connected)
	m.mu.Unlock()

	metrics.ConnectionGeneration.WithLabelValues(m.opts.Service).Set(float64(h.generation))
	if h.generation > 1 {
		metrics.ReconnectsTotal.WithLabelValues(m.opts.Service).Inc()
	}
	m.logger.Info().
		Str(xglog.FieldEvent, "connection.established").
		Str(xglog.FieldConnectType, m.opts.ConnectType).
		Uint64(xglog.FieldGeneration, h.generation).
		Msg("connected to service")

	m.hookMu.Lock()
	hooks := append([]Hook(nil), m.hooks...)
	m.hookMu.Unlock()
	for _, hook := range hooks {
		m.hookWG.Add(1)
		go func(hook Hook) {
			defer m.hookWG.Done()
			hook(m.ctx, h.generation)
		}(hook)
	}
}

func (m *Manager) drop(h *handle) {
	m.mu.Lock()
	if m.cur == h {
		m.cur = nil
		m.connected = make(chan struct{})
	}
	m.mu.Unlock()

	if _, err := m.machine.Fire(triggerDied); err != nil {
		m.logger.Debug().Err(err).Str(xglog.FieldEvent, "connection.died_transition").Msg("transition skipped")
	}
	m.logger.Warn().
		Err(h.client.Err()).
		Str(xglog.FieldEvent, "connection.died").
		Uint64(xglog.FieldGeneration, h.generation).
		Dur("reconnect_in", m.opts.DeathDelay).
		Msg("service died")
}

// eventsFor binds the event callback to one generation. Events from a
// superseded handle are dropped.
func (m *Manager) eventsFor(gen uint64) tvserver.Callback {
	return func(ev tvserver.Event) {
		if m.Generation() > gen {
			metrics.RecordEventDropped(ev.MsgType, "stale_generation")
			return
		}
		if m.opts.OnEvent != nil {
			m.opts.OnEvent(ev)
		}
	}
}

func (m *Manager) classify(h *handle, op string, err error) (string, error) {
	if err == nil {
		return "ok", nil
	}
	var se *tvserver.ServiceError
	if errors.As(err, &se) {
		return "service", err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled", err
	}
	if m.superseded(h) {
		return "stale", &status.RemoteError{Sentinel: status.ErrStaleConnection, Op: op, Generation: h.generation, Err: err}
	}
	return "transport", &status.RemoteError{Sentinel: status.ErrTransport, Op: op, Generation: h.generation, Err: err}
}

func (m *Manager) superseded(h *handle) bool {
	select {
	case <-h.client.Died():
		return true
	default:
	}
	return m.Generation() != h.generation
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, m.opts.CallTimeout)
	}
	return ctx, func() {}
}

func (m *Manager) newBackOff() backoff.BackOff {
	if m.opts.Backoff == BackoffExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = m.opts.RetryInterval
		b.MaxInterval = m.opts.MaxInterval
		return b
	}
	return backoff.NewConstantBackOff(m.opts.RetryInterval)
}

func (m *Manager) recordCall(op, outcome string) {
	metrics.RemoteCallsTotal.WithLabelValues(m.opts.Service, op, outcome).Inc()
}

func (m *Manager) onTransition(from, to State, _ trigger) {
	metrics.SetConnectionState(m.opts.Service, string(to))
	m.logger.Debug().
		Str(xglog.FieldEvent, "connection.state_changed").
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Msg("connection state changed")
}

func attemptResult(err error) string {
	if errors.Is(err, status.ErrServiceNotPublished) {
		return "not_published"
	}
	return "failed"
}
