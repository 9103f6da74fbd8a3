// SPDX-License-Identifier: MIT

// Package daemon wires the coordinator, the HTTP surface and their
// lifecycle into a runnable process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/tvinput/internal/api"
	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/health"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/telemetry"
	"github.com/ManuGH/tvinput/internal/tvinput"
)

const serviceName = "tvinputd"

// Options controls Bootstrap.
type Options struct {
	Config config.AppConfig
	// Holder enables file watching and SIGHUP reloads when set.
	Holder  *config.ConfigHolder
	Version string
	// SkipStartupChecks is for tests that bind ephemeral ports.
	SkipStartupChecks bool
}

// Runtime is the assembled process.
type Runtime struct {
	App         *App
	Coordinator *tvinput.Coordinator
	Bus         bus.Bus
	Health      *health.Manager
	API         *api.Server
}

// Bootstrap builds the object graph. Nothing is dialed or listened on until
// Runtime.App.Run.
func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  os.Stdout,
		Service: serviceName,
		Version: opts.Version,
	})
	logger := log.WithComponent("daemon")

	if !opts.SkipStartupChecks {
		if err := health.PerformStartupChecks(ctx, cfg); err != nil {
			return nil, fmt.Errorf("startup checks: %w", err)
		}
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry, serviceName, opts.Version))
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "telemetry.init_failed").Msg("telemetry initialization failed, continuing without tracing")
		provider = nil
	}

	coord := tvinput.New(tvinput.Options{
		Config: cfg,
		Tracer: telemetry.Tracer("tvinput"),
	})

	eventBus := bus.NewMemoryBus(0)
	coord.RegisterObserver(NewEventPublisher(eventBus, coord, 0))

	hm := health.NewManager(opts.Version)
	hm.RegisterChecker(health.NewConnectionChecker(coord.Connection(), false))
	hm.RegisterChecker(health.NewDirChecker("socket_dir", cfg.Service.SocketDir))

	apiServer := api.New(api.Deps{
		Coordinator:    coord,
		Bus:            eventBus,
		Health:         hm,
		RateLimit:      cfg.API.RateLimit,
		EnableMetrics:  cfg.Metrics.Enabled,
		TracingService: tracingService(cfg),
	})

	deps := Deps{
		Logger:     logger,
		APIHandler: apiServer.Handler(),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
	}
	mgr, err := NewManager(ServerConfigFrom(cfg), deps)
	if err != nil {
		return nil, err
	}

	// LIFO: the coordinator stops its source before tracing is flushed.
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}
	mgr.RegisterShutdownHook("coordinator", coord.Close)

	return &Runtime{
		App:         NewApp(logger, mgr, opts.Holder, coord),
		Coordinator: coord,
		Bus:         eventBus,
		Health:      hm,
		API:         apiServer,
	}, nil
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return serviceName + "-api"
}

// WaitForShutdown returns a context cancelled on interrupt or termination.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
