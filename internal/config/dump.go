// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "gopkg.in/yaml.v3"

// ToFileConfig renders a resolved configuration in file layout.
func ToFileConfig(cfg AppConfig) FileConfig {
	attempts := cfg.DTVKit.ProbeAttempts
	rate := cfg.API.RateLimit
	sampling := cfg.Telemetry.SamplingRate
	return FileConfig{
		LogLevel: cfg.LogLevel,
		Service: &FileServiceConfig{
			SocketDir:   cfg.Service.SocketDir,
			Name:        cfg.Service.Name,
			ConnectType: cfg.Service.ConnectType,
		},
		Connection: &FileConnectionConfig{
			RetryInterval: cfg.Connection.RetryInterval.String(),
			DeathDelay:    cfg.Connection.DeathDelay.String(),
			Backoff:       cfg.Connection.Backoff,
			MaxInterval:   cfg.Connection.MaxInterval.String(),
			CallTimeout:   cfg.Connection.CallTimeout.String(),
		},
		DTVKit: &FileDTVKitConfig{
			Enabled:       boolPtr(cfg.DTVKit.Enabled),
			Name:          cfg.DTVKit.Name,
			ProbeAttempts: &attempts,
			ProbeInterval: cfg.DTVKit.ProbeInterval.String(),
		},
		Platform: &FilePlatformConfig{
			TVUIMode:  boolPtr(cfg.Platform.TVUIMode),
			SysfsRoot: cfg.Platform.SysfsRoot,
		},
		API: &FileAPIConfig{
			ListenAddr: cfg.API.ListenAddr,
			RateLimit:  &rate,
		},
		Metrics: &FileMetricsConfig{
			Enabled:    boolPtr(cfg.Metrics.Enabled),
			ListenAddr: cfg.Metrics.ListenAddr,
		},
		Telemetry: &FileTelemetryConfig{
			Enabled:      boolPtr(cfg.Telemetry.Enabled),
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: &sampling,
		},
	}
}

// Dump marshals the effective configuration as YAML.
func Dump(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(ToFileConfig(cfg))
}

func boolPtr(b bool) *bool { return &b }
