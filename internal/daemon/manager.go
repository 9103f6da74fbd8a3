// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/tvinput/internal/log"
)

// ShutdownHook releases a resource during shutdown. Hooks run after the
// HTTP servers have stopped, last registered first.
type ShutdownHook func(ctx context.Context) error

// Manager owns the control API and metrics listeners of tvinputd.
type Manager interface {
	// Start binds the listeners and serves until ctx ends or a server fails.
	Start(ctx context.Context) error
	// Shutdown stops the servers and runs the hooks. Later calls are no-ops.
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type namedHook struct {
	name string
	fn   ShutdownHook
}

// server is one listener plus the http.Server serving it.
type server struct {
	name string
	addr string
	srv  *http.Server
}

type manager struct {
	cfg    ServerConfig
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	servers  []server
	hooks    []namedHook
	started  bool
	stopping bool
}

// NewManager validates deps and returns a Manager that has not bound anything yet.
func NewManager(cfg ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &manager{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str(xglog.FieldComponent, "daemon").Logger(),
	}, nil
}

func (m *manager) apiServer() *http.Server {
	// Request contexts derive from base. Cancelling it when shutdown begins
	// ends event streams, which http.Server.Shutdown would otherwise wait on.
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		MaxHeaderBytes:    m.cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

// bind opens every configured listener before any of them serves, so a
// port conflict fails Start without leaving half the daemon running.
func (m *manager) bind() ([]server, []net.Listener, error) {
	servers := []server{{name: "API server", addr: m.cfg.ListenAddr, srv: m.apiServer()}}
	if m.deps.MetricsHandler != nil && m.cfg.MetricsAddr != "" {
		servers = append(servers, server{
			name: "metrics server",
			addr: m.cfg.MetricsAddr,
			srv:  &http.Server{Handler: m.deps.MetricsHandler, ReadHeaderTimeout: 5 * time.Second},
		})
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, s := range servers {
		ln, err := net.Listen("tcp", s.addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return nil, nil, fmt.Errorf("%s: %w", s.name, err)
		}
		listeners = append(listeners, ln)
	}
	return servers, listeners, nil
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("daemon: servers already started")
	}
	servers, listeners, err := m.bind()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.servers = servers
	m.started = true
	m.mu.Unlock()

	failed := make(chan error, len(servers))
	for i, s := range servers {
		ln := listeners[i]
		m.logger.Info().
			Str(xglog.FieldEvent, "daemon.listening").
			Str("server", s.name).
			Str("addr", ln.Addr().String()).
			Msg("listening")
		go func() {
			if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				failed <- fmt.Errorf("%s: %w", s.name, err)
			}
		}()
	}

	var cause error
	select {
	case cause = <-failed:
		m.logger.Error().Err(cause).Str(xglog.FieldEvent, "daemon.server_failed").Msg("server failed, shutting down")
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(cause, m.Shutdown(stopCtx))
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	m.stopping = true
	servers := m.servers
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(servers))
	)
	for i, s := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.srv.Shutdown(ctx); err != nil {
				errs[i] = fmt.Errorf("%s shutdown: %w", s.name, err)
			}
		}()
	}
	wg.Wait()

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		began := time.Now()
		if err := h.fn(ctx); err != nil {
			m.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "daemon.hook_failed").
				Str("hook", h.name).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().
			Str(xglog.FieldEvent, "daemon.hook_done").
			Str("hook", h.name).
			Dur("duration", time.Since(began)).
			Msg("shutdown hook finished")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown errors: %w", err)
	}
	m.logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, namedHook{name: name, fn: hook})
	m.mu.Unlock()
}
