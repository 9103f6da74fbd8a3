// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvinput

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/connection"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

// dtvkitSession is the arbiter's view of the optional DTV-kit service. It
// answers ("", nil) until a session has been established, so DTV-kit
// sources still arbitrate locally on platforms without one.
type dtvkitSession struct {
	cfg    config.AppConfig
	tracer trace.Tracer
	logger zerolog.Logger

	mu     sync.RWMutex
	conn   *connection.Manager
	remote *tvserver.Remote
}

func newDTVKitSession(cfg config.AppConfig, tracer trace.Tracer) *dtvkitSession {
	return &dtvkitSession{
		cfg:    cfg,
		tracer: tracer,
		logger: xglog.WithComponent("dtvkit"),
	}
}

// Request forwards a session method when a session exists.
func (s *dtvkitSession) Request(ctx context.Context, method, payload string) (string, error) {
	s.mu.RLock()
	remote := s.remote
	s.mu.RUnlock()
	if remote == nil {
		s.logger.Debug().
			Str(xglog.FieldEvent, "dtvkit.no_session").
			Str(xglog.FieldOp, method).
			Msg("no DTV-kit session, request skipped")
		return "", nil
	}
	return remote.Request(ctx, method, payload)
}

func (s *dtvkitSession) available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote != nil
}

// probe looks the service up a bounded number of times. A service that
// never appears leaves the session absent and is not an error.
func (s *dtvkitSession) probe(ctx context.Context) error {
	dir := tvserver.Directory{Root: s.cfg.Service.SocketDir}
	name := s.cfg.DTVKit.Name
	attempts := s.cfg.DTVKit.ProbeAttempts
	if attempts < 1 {
		attempts = 1
	}

	_, err := backoff.Retry(ctx, func() (string, error) {
		return dir.Lookup(name)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.DTVKit.ProbeInterval)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, status.ErrServiceNotPublished) {
			s.logger.Info().
				Str(xglog.FieldEvent, "dtvkit.absent").
				Str(xglog.FieldServiceName, name).
				Int(xglog.FieldAttempt, attempts).
				Msg("DTV-kit service not published, continuing without it")
			return nil
		}
		return fmt.Errorf("probe %s: %w", name, err)
	}

	conn := connection.New(connection.Options{
		Directory:     dir,
		Service:       name,
		ConnectType:   s.cfg.Service.ConnectType,
		RetryInterval: s.cfg.Connection.RetryInterval,
		DeathDelay:    s.cfg.Connection.DeathDelay,
		Backoff:       s.cfg.Connection.Backoff,
		MaxInterval:   s.cfg.Connection.MaxInterval,
		CallTimeout:   s.cfg.Connection.CallTimeout,
		Tracer:        s.tracer,
	})
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("connect %s: %w", name, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.remote = tvserver.NewRemote(conn)
	s.mu.Unlock()
	s.logger.Info().
		Str(xglog.FieldEvent, "dtvkit.connected").
		Str(xglog.FieldServiceName, name).
		Msg("DTV-kit session established")
	return nil
}

func (s *dtvkitSession) close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn, s.remote = nil, nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
