// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tvinput/internal/config"
	xglog "github.com/ManuGH/tvinput/internal/log"
)

// Connector is the coordinator lifecycle the App drives.
type Connector interface {
	Connect(ctx context.Context) error
}

// App runs tvinputd: the servers, the platform connection and config
// reloading, all tied to one context.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	connector    Connector
	reloadSignal os.Signal
}

// NewApp wires an App. cfgHolder and connector may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, connector Connector) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		connector:    connector,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx ends or a server or the platform connection fails.
// The API serves while the platform is still being acquired; readiness
// reports the connection meanwhile.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// Registered before any server runs so no reload is missed.
		reloaded := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(reloaded)
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("config file will not be watched")
		}
		defer a.cfgHolder.Stop()
		g.Go(func() error { return a.followConfig(ctx, reloaded) })
	}
	if a.connector != nil {
		g.Go(func() error { return a.connect(ctx) })
	}
	g.Go(func() error { return a.manager.Start(ctx) })

	return g.Wait()
}

// followConfig applies reloaded settings and turns the reload signal into
// a Reload call.
func (a *App) followConfig(ctx context.Context, reloaded <-chan config.AppConfig) error {
	var hup chan os.Signal
	if a.reloadSignal != nil {
		hup = make(chan os.Signal, 1)
		signal.Notify(hup, a.reloadSignal)
		defer signal.Stop(hup)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reloaded:
			a.apply(cfg)
		case sig := <-hup:
			a.logger.Info().
				Str(xglog.FieldEvent, "config.reload_signal").
				Str("signal", sig.String()).
				Msg("reloading configuration")
			// Failures are logged by the holder; the old config stays active.
			_ = a.cfgHolder.Reload(ctx)
		}
	}
}

func (a *App) connect(ctx context.Context) error {
	err := a.connector.Connect(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	a.logger.Error().Err(err).Str(xglog.FieldEvent, "tvinput.connect_failed").Msg("platform connection failed")
	return err
}

// apply takes over the settings that are safe to change at runtime.
func (a *App) apply(cfg config.AppConfig) {
	if xglog.SetLevel(cfg.LogLevel) {
		a.logger.Info().
			Str(xglog.FieldEvent, "config.applied").
			Str("log_level", cfg.LogLevel).
			Msg("log level changed")
	}
}
