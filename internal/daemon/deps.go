// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/config"
)

// ServerConfig holds listener addresses and HTTP timeouts.
type ServerConfig struct {
	ListenAddr string
	// MetricsAddr is empty when metrics are disabled.
	MetricsAddr string

	ReadTimeout time.Duration
	// WriteTimeout stays zero for the API server so event streams are not cut.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// ServerConfigFrom derives listener settings from the application config.
func ServerConfigFrom(cfg config.AppConfig) ServerConfig {
	sc := ServerConfig{
		ListenAddr:      cfg.API.ListenAddr,
		ReadTimeout:     10 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
	if cfg.Metrics.Enabled {
		sc.MetricsAddr = cfg.Metrics.ListenAddr
	}
	return sc
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the API server
	APIHandler http.Handler

	// MetricsHandler is the HTTP handler for Prometheus metrics (if enabled)
	MetricsHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
