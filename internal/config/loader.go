// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, empty when running from ENV only.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a single strict YAML document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if s := f.Service; s != nil {
		setString(&cfg.Service.SocketDir, s.SocketDir)
		setString(&cfg.Service.Name, s.Name)
		setString(&cfg.Service.ConnectType, s.ConnectType)
	}
	if c := f.Connection; c != nil {
		if err := setDuration(&cfg.Connection.RetryInterval, "connection.retryInterval", c.RetryInterval); err != nil {
			return err
		}
		if err := setDuration(&cfg.Connection.DeathDelay, "connection.deathDelay", c.DeathDelay); err != nil {
			return err
		}
		if err := setDuration(&cfg.Connection.MaxInterval, "connection.maxInterval", c.MaxInterval); err != nil {
			return err
		}
		if err := setDuration(&cfg.Connection.CallTimeout, "connection.callTimeout", c.CallTimeout); err != nil {
			return err
		}
		setString(&cfg.Connection.Backoff, c.Backoff)
	}
	if d := f.DTVKit; d != nil {
		setBool(&cfg.DTVKit.Enabled, d.Enabled)
		setString(&cfg.DTVKit.Name, d.Name)
		if d.ProbeAttempts != nil {
			cfg.DTVKit.ProbeAttempts = *d.ProbeAttempts
		}
		if err := setDuration(&cfg.DTVKit.ProbeInterval, "dtvkit.probeInterval", d.ProbeInterval); err != nil {
			return err
		}
	}
	if p := f.Platform; p != nil {
		setBool(&cfg.Platform.TVUIMode, p.TVUIMode)
		setString(&cfg.Platform.SysfsRoot, p.SysfsRoot)
	}
	if a := f.API; a != nil {
		setString(&cfg.API.ListenAddr, a.ListenAddr)
		if a.RateLimit != nil {
			cfg.API.RateLimit = *a.RateLimit
		}
	}
	if m := f.Metrics; m != nil {
		setBool(&cfg.Metrics.Enabled, m.Enabled)
		setString(&cfg.Metrics.ListenAddr, m.ListenAddr)
	}
	if t := f.Telemetry; t != nil {
		setBool(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		if t.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *t.SamplingRate
		}
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Service.SocketDir = l.envString(EnvSocketDir, cfg.Service.SocketDir)
	cfg.Service.Name = l.envString(EnvServiceName, cfg.Service.Name)
	cfg.Service.ConnectType = l.envString(EnvConnectType, cfg.Service.ConnectType)

	cfg.Connection.RetryInterval = l.envDuration(EnvRetryInterval, cfg.Connection.RetryInterval)
	cfg.Connection.DeathDelay = l.envDuration(EnvDeathDelay, cfg.Connection.DeathDelay)
	cfg.Connection.Backoff = l.envString(EnvBackoff, cfg.Connection.Backoff)
	cfg.Connection.MaxInterval = l.envDuration(EnvMaxInterval, cfg.Connection.MaxInterval)
	cfg.Connection.CallTimeout = l.envDuration(EnvCallTimeout, cfg.Connection.CallTimeout)

	cfg.DTVKit.Enabled = l.envBool(EnvDTVKitEnabled, cfg.DTVKit.Enabled)
	cfg.DTVKit.Name = l.envString(EnvDTVKitName, cfg.DTVKit.Name)

	cfg.Platform.TVUIMode = l.envBool(EnvPlatformTV, cfg.Platform.TVUIMode)
	cfg.Platform.SysfsRoot = l.envString(EnvSysfsRoot, cfg.Platform.SysfsRoot)

	cfg.API.ListenAddr = l.envString(EnvAPIListen, cfg.API.ListenAddr)
	cfg.API.RateLimit = l.envInt(EnvAPIRateLimit, cfg.API.RateLimit)

	cfg.Metrics.Enabled = l.envBool(EnvMetricsEnabled, cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString(EnvMetricsListen, cfg.Metrics.ListenAddr)

	cfg.Telemetry.Enabled = l.envBool(EnvTraceEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTraceExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTraceEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTraceSampleRate, cfg.Telemetry.SamplingRate)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, v, err)
	}
	*dst = d
	return nil
}
