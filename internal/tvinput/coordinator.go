// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tvinput wires the source arbiter, the platform service
// connection, the DTV-kit session and the event bridge into the
// coordinator the control surface talks to.
package tvinput

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/tvinput/internal/arbiter"
	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/connection"
	"github.com/ManuGH/tvinput/internal/events"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/streamcfg"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

// Options configures a Coordinator.
type Options struct {
	Config config.AppConfig
	Tracer trace.Tracer
}

// Coordinator is the single owner of arbitration state, the observer
// registration and the platform connections.
type Coordinator struct {
	cfg    config.AppConfig
	logger zerolog.Logger

	conn     *connection.Manager
	remote   *tvserver.Remote
	dtvkit   *dtvkitSession
	arbiter  *arbiter.Arbiter
	bridge   *events.Bridge
	streams  *streamcfg.Table
	platform Platform

	// tvCapable is read once at construction.
	tvCapable bool

	closeOnce sync.Once
	closeErr  error
}

// New builds a Coordinator. Nothing is dialed until Connect.
func New(opts Options) *Coordinator {
	cfg := opts.Config
	c := &Coordinator{
		cfg:       cfg,
		logger:    xglog.WithComponent("tvinput"),
		bridge:    events.NewBridge(),
		streams:   streamcfg.NewTable(),
		platform:  Platform{Root: cfg.Platform.SysfsRoot},
		tvCapable: cfg.Platform.TVUIMode,
	}
	c.conn = connection.New(connection.Options{
		Directory:     tvserver.Directory{Root: cfg.Service.SocketDir},
		Service:       cfg.Service.Name,
		ConnectType:   cfg.Service.ConnectType,
		RetryInterval: cfg.Connection.RetryInterval,
		DeathDelay:    cfg.Connection.DeathDelay,
		Backoff:       cfg.Connection.Backoff,
		MaxInterval:   cfg.Connection.MaxInterval,
		CallTimeout:   cfg.Connection.CallTimeout,
		OnEvent:       c.bridge.Deliver,
		Tracer:        opts.Tracer,
	})
	c.remote = tvserver.NewRemote(c.conn)
	c.dtvkit = newDTVKitSession(cfg, opts.Tracer)
	c.arbiter = arbiter.New(arbiter.Options{
		Remote: c.remote,
		DTVKit: c.dtvkit,
		Tracer: opts.Tracer,
	})
	c.conn.OnConnected(c.reconcile)
	return c
}

// Connect connects to the platform service, probes the DTV-kit session and
// loads stream configurations for the supported sources. It blocks until
// the platform service is connected or ctx is done; the connection keeps
// retrying in the background either way.
func (c *Coordinator) Connect(ctx context.Context) error {
	if err := c.conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", c.conn.Service(), err)
	}
	if c.cfg.DTVKit.Enabled {
		if err := c.dtvkit.probe(ctx); err != nil {
			return err
		}
	}
	if err := c.loadStreams(ctx); err != nil {
		c.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "tvinput.streams_unavailable").
			Msg("stream configurations not loaded")
	}
	c.logger.Info().
		Str(xglog.FieldEvent, "tvinput.started").
		Bool("dtvkit", c.dtvkit.available()).
		Bool("tv_capable", c.tvCapable).
		Msg("coordinator started")
	return nil
}

func (c *Coordinator) loadStreams(ctx context.Context) error {
	ids, err := c.GetSupportedSources(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		c.streams.Set(id, streamcfg.DefaultConfig(id))
	}
	return nil
}

// Close resets arbitration state (stopping the active source), then closes
// the DTV-kit session and the platform connection.
func (c *Coordinator) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		if err := c.arbiter.Close(ctx); err != nil {
			if status.IsTransient(err) {
				c.logger.Warn().
					Err(err).
					Str(xglog.FieldEvent, "tvinput.reset_skipped").
					Msg("platform unreachable while stopping the active source")
			} else {
				errs = append(errs, fmt.Errorf("close arbiter: %w", err))
			}
		}
		if err := c.dtvkit.close(); err != nil {
			errs = append(errs, fmt.Errorf("close dtvkit: %w", err))
		}
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// Connection exposes the platform connection for health checks.
func (c *Coordinator) Connection() *connection.Manager { return c.conn }

// Remote exposes the typed platform operations.
func (c *Coordinator) Remote() *tvserver.Remote { return c.remote }

// Streams returns the stream configuration table.
func (c *Coordinator) Streams() *streamcfg.Table { return c.streams }

// RegisterObserver installs the single event observer, replacing any
// previous one. A nil observer unregisters.
func (c *Coordinator) RegisterObserver(ob events.Observer) {
	c.bridge.Register(ob)
}

// IsPlatformTvCapable reports the TV UI platform property read at startup.
func (c *Coordinator) IsPlatformTvCapable() bool { return c.tvCapable }

// GetSupportedSources queries the attached input devices. A "null" list
// yields no sources; DTVKitPIP follows DTVKit when present. Unknown device
// numbers are dropped with a warning.
func (c *Coordinator) GetSupportedSources(ctx context.Context) ([]source.ID, error) {
	raw, err := c.remote.GetSupportInputDevices(ctx)
	if err != nil {
		return nil, err
	}
	ids, unknown, err := source.ParseDeviceList(raw)
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		c.logger.Warn().
			Str(xglog.FieldEvent, "tvinput.unknown_sources").
			Str("raw", raw).
			Ints64("ids", unknown).
			Msg("platform reported devices outside the source range")
	}
	c.logger.Debug().
		Str(xglog.FieldEvent, "tvinput.sources").
		Str("raw", raw).
		Int("count", len(ids)).
		Msg("supported sources")
	return ids, nil
}

// StartSource marks src active and starts it on the platform.
func (c *Coordinator) StartSource(ctx context.Context, src source.ID) (status.Code, error) {
	return c.arbiter.Start(ctx, src)
}

// StopSource clears the active flag and stops src on the platform.
func (c *Coordinator) StopSource(ctx context.Context, src source.ID) (status.Code, error) {
	return c.arbiter.Stop(ctx, src)
}

// SwitchSource makes src current.
func (c *Coordinator) SwitchSource(ctx context.Context, src source.ID) (status.Code, error) {
	return c.arbiter.SwitchSource(ctx, src)
}

// CheckSourceStatus runs the conflict check; status.Busy means src was
// queued.
func (c *Coordinator) CheckSourceStatus(ctx context.Context, src source.ID, wantActive bool) (status.Code, error) {
	return c.arbiter.CheckSourceStatus(ctx, src, wantActive)
}

// NextWaiting pops the start queue (wantActive) or the stop queue.
func (c *Coordinator) NextWaiting(ctx context.Context, wantActive bool) (source.ID, error) {
	return c.arbiter.NextWaiting(ctx, wantActive)
}

// NextHeld pops the hold queue.
func (c *Coordinator) NextHeld(ctx context.Context) (source.ID, error) {
	return c.arbiter.NextHeld(ctx)
}

// Snapshot returns the arbitration state.
func (c *Coordinator) Snapshot(ctx context.Context) (arbiter.Snapshot, error) {
	return c.arbiter.Snapshot(ctx)
}

// SetStreamTunnelID records the tunnel id pushed to the platform on the
// next start.
func (c *Coordinator) SetStreamTunnelID(ctx context.Context, id int32) error {
	return c.arbiter.SetTunnelID(ctx, id)
}

// SetStreamGivenID records the stream id handed out to the caller.
func (c *Coordinator) SetStreamGivenID(ctx context.Context, id int32) error {
	return c.arbiter.SetStreamGivenID(ctx, id)
}

// SetDeviceGivenID records the device id handed out to the caller.
func (c *Coordinator) SetDeviceGivenID(ctx context.Context, id int32) error {
	return c.arbiter.SetDeviceGivenID(ctx, id)
}
