// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/daemon"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the platform service and serve the control API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, loader, err := opts.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := daemon.WaitForShutdown()
			defer stop()

			rt, err := daemon.Bootstrap(ctx, daemon.Options{
				Config:  cfg,
				Holder:  config.NewConfigHolder(cfg, loader, loader.Path()),
				Version: version.Version,
			})
			if err != nil {
				return err
			}

			logger := xglog.WithComponent("daemon")
			logger.Info().
				Str(xglog.FieldEvent, "daemon.start").
				Str("version", version.String()).
				Str("service", cfg.Service.Name).
				Str("socket_dir", cfg.Service.SocketDir).
				Str("listen", cfg.API.ListenAddr).
				Msg("starting tvinputd")

			if err := rt.App.Run(ctx); err != nil {
				logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon exited with error")
				return err
			}
			logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("tvinputd stopped")
			return nil
		},
	}
}
