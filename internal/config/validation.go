// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/tvinput/internal/validate"
)

// Validate checks the resolved configuration as a whole and reports every
// violation at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)

	v.AbsPath("service.socketDir", cfg.Service.SocketDir)
	v.NotEmpty("service.name", cfg.Service.Name)
	v.OneOf("service.connectType", cfg.Service.ConnectType, ConnectTypeHAL, ConnectTypeDiagnostic)

	v.MinDuration("connection.retryInterval", cfg.Connection.RetryInterval, time.Millisecond)
	v.MinDuration("connection.deathDelay", cfg.Connection.DeathDelay, 0)
	v.OneOf("connection.backoff", cfg.Connection.Backoff, BackoffFixed, BackoffExponential)
	if cfg.Connection.Backoff == BackoffExponential {
		v.MinDuration("connection.maxInterval", cfg.Connection.MaxInterval, cfg.Connection.RetryInterval)
	}
	v.MinDuration("connection.callTimeout", cfg.Connection.CallTimeout, 0)

	if cfg.DTVKit.Enabled {
		v.NotEmpty("dtvkit.name", cfg.DTVKit.Name)
		validate.InRange(v, "dtvkit.probeAttempts", cfg.DTVKit.ProbeAttempts, 1, 20)
		v.MinDuration("dtvkit.probeInterval", cfg.DTVKit.ProbeInterval, 0)
	}

	v.AbsPath("platform.sysfsRoot", cfg.Platform.SysfsRoot)

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	v.Positive("api.rateLimit", cfg.API.RateLimit)

	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, ExporterGRPC, ExporterHTTP)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		validate.InRange(v, "telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
