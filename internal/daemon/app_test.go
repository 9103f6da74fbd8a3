// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/log"
)

type fakeManager struct {
	started chan struct{}
	onStart func(context.Context)
}

func (m *fakeManager) Start(ctx context.Context) error {
	if m.onStart != nil {
		m.onStart(ctx)
	}
	close(m.started)
	<-ctx.Done()
	return nil
}

func (m *fakeManager) Shutdown(context.Context) error { return nil }

func (m *fakeManager) RegisterShutdownHook(string, ShutdownHook) {}

type connectFunc func(context.Context) error

func (f connectFunc) Connect(ctx context.Context) error { return f(ctx) }

func TestAppRequiresManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestAppConnectFailureStopsRun(t *testing.T) {
	boom := errors.New("connect tvserver: boom")
	mgr := &fakeManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, nil, connectFunc(func(ctx context.Context) error {
		<-mgr.started
		return boom
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, app.Run(ctx), boom)
}

func TestAppCancelledConnectIsClean(t *testing.T) {
	mgr := &fakeManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, nil, connectFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestAppAppliesReloadedLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o600))
	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewConfigHolder(initial, loader, "")

	mgr := &fakeManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, holder, nil)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o600))
	require.NoError(t, holder.Reload(ctx))
	assert.Eventually(t, func() bool {
		return zerolog.GlobalLevel() == zerolog.DebugLevel
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestAppAppliesReloadWhileServersStart(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o600))
	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewConfigHolder(initial, loader, "")

	mgr := &fakeManager{
		started: make(chan struct{}),
		onStart: func(ctx context.Context) {
			assert.NoError(t, os.WriteFile(path, []byte("logLevel: warn\n"), 0o600))
			assert.NoError(t, holder.Reload(ctx))
		},
	}
	app := NewApp(log.WithComponent("test"), mgr, holder, nil)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started

	assert.Eventually(t, func() bool {
		return zerolog.GlobalLevel() == zerolog.WarnLevel
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
