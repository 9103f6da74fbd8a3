// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/telemetry"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// publish serves srv under name in dir until the test ends.
func publish(t *testing.T, dir tvserver.Directory, name string, srv *tvserver.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, dir.Path(name)) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newServer() *tvserver.Server {
	srv := tvserver.NewServer(zerolog.Nop())
	srv.Handle(tvserver.OpStartTv, func(context.Context, tvserver.Args) (tvserver.Reply, error) {
		return tvserver.Reply{Result: status.OK}, nil
	})
	return srv
}

func newManager(t *testing.T, dir tvserver.Directory, service string, mutate func(*Options)) *Manager {
	t.Helper()
	opts := Options{
		Directory:     dir,
		Service:       service,
		ConnectType:   "hal",
		RetryInterval: 10 * time.Millisecond,
		DeathDelay:    10 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	m := New(opts)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCallBeforeConnectIsNotConnected(t *testing.T) {
	m := newManager(t, tvserver.Directory{Root: t.TempDir()}, "svc-idle", nil)

	_, err := m.Call(context.Background(), tvserver.OpStartTv, tvserver.Args{})
	require.ErrorIs(t, err, status.ErrNotConnected)
	assert.Equal(t, StateDisconnected, m.State())
	assert.False(t, m.Connected())
}

func TestConnectWaitsForLateService(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-late"
	m := newManager(t, dir, service, nil)
	m.Start()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ConnectAttemptsTotal.WithLabelValues(service, "not_published")) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateConnecting, m.State())

	srv := newServer()
	publish(t, dir, service, srv)

	require.NoError(t, m.WaitConnected(waitCtx(t)))
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, uint64(1), m.Generation())
	assert.Equal(t, []string{"hal"}, srv.Subscribers())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConnectionStateValue(service, "connected")))

	reply, err := m.Call(context.Background(), tvserver.OpStartTv, tvserver.Args{})
	require.NoError(t, err)
	assert.Equal(t, status.OK, reply.Result)
}

func TestReconnectAfterServiceDeath(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-reconnect"
	srv := newServer()
	publish(t, dir, service, srv)

	var events sync.Map
	m := newManager(t, dir, service, func(o *Options) {
		o.OnEvent = func(ev tvserver.Event) { events.Store(ev.MsgType, ev) }
	})

	var hookGens []uint64
	var hookMu sync.Mutex
	m.OnConnected(func(_ context.Context, gen uint64) {
		hookMu.Lock()
		hookGens = append(hookGens, gen)
		hookMu.Unlock()
	})

	require.NoError(t, m.Connect(waitCtx(t)))
	require.Equal(t, uint64(1), m.Generation())

	srv.DropClients()

	require.Eventually(t, func() bool {
		return m.Generation() == 2 && m.State() == StateConnected
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReconnectsTotal.WithLabelValues(service)))

	reply, err := m.Call(context.Background(), tvserver.OpStartTv, tvserver.Args{})
	require.NoError(t, err)
	assert.Equal(t, status.OK, reply.Result)

	// The fresh connection carries a freshly registered callback.
	require.Eventually(t, func() bool { return len(srv.Subscribers()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, srv.Broadcast(tvserver.Event{MsgType: 7, Ints: []int32{5}}))
	require.Eventually(t, func() bool {
		_, ok := events.Load(int32(7))
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		hookMu.Lock()
		defer hookMu.Unlock()
		return len(hookGens) == 2
	}, 2*time.Second, 5*time.Millisecond)
	hookMu.Lock()
	assert.ElementsMatch(t, []uint64{1, 2}, hookGens)
	hookMu.Unlock()
}

func TestCallInFlightDuringDeathIsStale(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-stale"
	srv := newServer()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv.Handle(tvserver.OpStopTv, func(context.Context, tvserver.Args) (tvserver.Reply, error) {
		once.Do(func() { close(entered) })
		<-release
		return tvserver.Reply{}, nil
	})
	publish(t, dir, service, srv)
	t.Cleanup(func() { close(release) })

	m := newManager(t, dir, service, nil)
	require.NoError(t, m.Connect(waitCtx(t)))

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Call(context.Background(), tvserver.OpStopTv, tvserver.Args{})
		errCh <- err
	}()
	<-entered
	srv.DropClients()

	var err error
	select {
	case err = <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("call did not return after the connection died")
	}
	require.ErrorIs(t, err, status.ErrStaleConnection)
	assert.True(t, status.IsTransient(err))

	var remote *status.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, uint64(1), remote.Generation)
	assert.Equal(t, tvserver.OpStopTv, remote.Op)
}

func TestServiceErrorIsNotTransport(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-service-error"
	srv := newServer()
	publish(t, dir, service, srv)

	m := newManager(t, dir, service, nil)
	require.NoError(t, m.Connect(waitCtx(t)))

	reply, err := m.Call(context.Background(), "noSuchOp", tvserver.Args{})
	var se *tvserver.ServiceError
	require.ErrorAs(t, err, &se)
	assert.False(t, status.IsTransient(err))
	assert.Equal(t, status.NotImplemented, reply.Result)
}

func TestCallTimeout(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-timeout"
	srv := newServer()
	release := make(chan struct{})
	srv.Handle(tvserver.OpGetHdmiPorts, func(context.Context, tvserver.Args) (tvserver.Reply, error) {
		<-release
		return tvserver.Reply{}, nil
	})
	publish(t, dir, service, srv)
	t.Cleanup(func() { close(release) })

	m := newManager(t, dir, service, func(o *Options) { o.CallTimeout = 20 * time.Millisecond })
	require.NoError(t, m.Connect(waitCtx(t)))

	_, err := m.Call(context.Background(), tvserver.OpGetHdmiPorts, tvserver.Ints(5))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseMovesToClosed(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-close"
	publish(t, dir, service, newServer())

	m := newManager(t, dir, service, nil)
	require.NoError(t, m.Connect(waitCtx(t)))
	require.NoError(t, m.Close())

	assert.Equal(t, StateClosed, m.State())
	_, err := m.Call(context.Background(), tvserver.OpStartTv, tvserver.Args{})
	require.ErrorIs(t, err, status.ErrClosed)
	require.ErrorIs(t, m.WaitConnected(context.Background()), status.ErrClosed)
	require.NoError(t, m.Close())
}

func TestCloseWhileConnecting(t *testing.T) {
	m := newManager(t, tvserver.Directory{Root: t.TempDir()}, "svc-never", nil)
	m.Start()
	require.Eventually(t, func() bool { return m.State() == StateConnecting }, time.Second, 5*time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- m.WaitConnected(context.Background()) }()

	require.NoError(t, m.Close())
	require.ErrorIs(t, <-errCh, status.ErrClosed)
	assert.Equal(t, StateClosed, m.State())
}

func TestExponentialBackoffStillConnects(t *testing.T) {
	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-exp"
	m := newManager(t, dir, service, func(o *Options) {
		o.Backoff = BackoffExponential
		o.RetryInterval = 5 * time.Millisecond
		o.MaxInterval = 20 * time.Millisecond
	})
	m.Start()
	time.Sleep(30 * time.Millisecond)
	publish(t, dir, service, newServer())

	require.NoError(t, m.WaitConnected(waitCtx(t)))
}

func TestCallsAreTraced(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	dir := tvserver.Directory{Root: t.TempDir()}
	service := "svc-traced"
	publish(t, dir, service, newServer())

	m := newManager(t, dir, service, func(o *Options) { o.Tracer = tp.Tracer("test") })
	require.NoError(t, m.Connect(waitCtx(t)))

	_, err := m.Call(context.Background(), tvserver.OpStartTv, tvserver.Args{})
	require.NoError(t, err)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "tvserver.startTv", spans[0].Name)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(1), attrs[telemetry.RemoteGenerationKey].AsInt64())
	assert.Equal(t, "ok", attrs[telemetry.RemoteOutcomeKey].AsString())
	assert.Equal(t, service, attrs[telemetry.RemoteServiceKey].AsString())
}

func TestStaleEventsAreDropped(t *testing.T) {
	var delivered atomic.Int32
	m := New(Options{OnEvent: func(tvserver.Event) { delivered.Add(1) }})
	t.Cleanup(func() { _ = m.Close() })

	m.mu.Lock()
	m.gen = 3
	m.mu.Unlock()

	m.eventsFor(2)(tvserver.Event{MsgType: 1})
	m.eventsFor(3)(tvserver.Event{MsgType: 1})
	assert.Equal(t, int32(1), delivered.Load())
}
