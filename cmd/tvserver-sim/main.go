// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command tvserver-sim publishes a simulated platform service, and
// optionally a DTV-kit session service, for running tvinputd off-device.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/simulator"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/tvserver"
	"github.com/ManuGH/tvinput/internal/version"
)

type simOptions struct {
	socketDir   string
	name        string
	dtvkitName  string
	devices     string
	current     string
	pip         bool
	hotplug     string
	hotplugRate time.Duration
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &simOptions{}
	cmd := &cobra.Command{
		Use:          "tvserver-sim",
		Short:        "Simulated TV platform service",
		Version:      version.String(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.socketDir, "socket-dir", "/run/tvinput", "directory services are published in")
	f.StringVar(&opts.name, "name", "tvserver", "platform service name")
	f.StringVar(&opts.dtvkitName, "dtvkit", "", "also publish a DTV-kit session service under this name")
	f.StringVar(&opts.devices, "devices", "", `supported device list, e.g. "0,5,6,19" (empty keeps the default)`)
	f.StringVar(&opts.current, "current", "", "initial current input source")
	f.BoolVar(&opts.pip, "pip", false, "report HDMI picture-in-picture support")
	f.StringVar(&opts.hotplug, "hotplug", "", "source whose cable is toggled periodically")
	f.DurationVar(&opts.hotplugRate, "hotplug-interval", 10*time.Second, "cable toggle interval")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(ctx context.Context, opts *simOptions) error {
	xglog.Configure(xglog.Config{Level: opts.logLevel, Output: os.Stdout, Service: "tvserver-sim", Version: version.Version})
	logger := xglog.WithComponent("simulator")

	platform := simulator.NewPlatform(logger)
	if opts.devices != "" {
		_, unknown, err := source.ParseDeviceList(opts.devices)
		if err != nil {
			return fmt.Errorf("--devices: %w", err)
		}
		if len(unknown) > 0 {
			return fmt.Errorf("--devices: unknown source ids %v", unknown)
		}
		platform.SetDevices(opts.devices)
	}
	if opts.current != "" {
		id, err := source.Parse(opts.current)
		if err != nil {
			return fmt.Errorf("--current: %w", err)
		}
		platform.SetCurrent(id)
	}
	platform.SetPIPSupported(opts.pip)

	toggle := source.Invalid
	if opts.hotplug != "" {
		id, err := source.Parse(opts.hotplug)
		if err != nil || !id.Valid() {
			return fmt.Errorf("--hotplug: %w", source.ErrUnknownSource)
		}
		toggle = id
	}

	dir := tvserver.Directory{Root: opts.socketDir}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str(xglog.FieldEvent, "sim.publish").Str(xglog.FieldPath, dir.Path(opts.name)).Msg("platform service published")
		return platform.Server().ListenAndServe(ctx, dir.Path(opts.name))
	})
	if opts.dtvkitName != "" {
		dtvkit := simulator.NewDTVKit(logger)
		g.Go(func() error {
			logger.Info().Str(xglog.FieldEvent, "sim.publish").Str(xglog.FieldPath, dir.Path(opts.dtvkitName)).Msg("DTV-kit service published")
			return dtvkit.Server().ListenAndServe(ctx, dir.Path(opts.dtvkitName))
		})
	}
	if toggle != source.Invalid {
		g.Go(func() error {
			ticker := time.NewTicker(opts.hotplugRate)
			defer ticker.Stop()
			connected := false
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					connected = !connected
					n := platform.Hotplug(toggle, connected)
					logger.Info().
						Str(xglog.FieldEvent, "sim.hotplug").
						Stringer(xglog.FieldSource, toggle).
						Bool("connected", connected).
						Int("clients", n).
						Msg("cable toggled")
				}
			}
		})
	}
	return g.Wait()
}
