// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Connect types announced to the platform service when registering callbacks.
const (
	ConnectTypeHAL        = "hal"
	ConnectTypeDiagnostic = "diagnostic"
)

// Backoff policies for the connection supervisor.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Telemetry exporters.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version  string
	LogLevel string

	Service    ServiceConfig
	Connection ConnectionConfig
	DTVKit     DTVKitConfig
	Platform   PlatformConfig
	API        APIConfig
	Metrics    MetricsConfig
	Telemetry  TelemetryConfig
}

// ServiceConfig locates the remote platform service.
type ServiceConfig struct {
	SocketDir   string
	Name        string
	ConnectType string
}

// ConnectionConfig controls acquisition and reconnection pacing.
type ConnectionConfig struct {
	RetryInterval time.Duration
	DeathDelay    time.Duration
	Backoff       string
	MaxInterval   time.Duration
	CallTimeout   time.Duration // 0 disables per-call deadlines
}

// DTVKitConfig controls the optional DTV-kit session service.
type DTVKitConfig struct {
	Enabled       bool
	Name          string
	ProbeAttempts int
	ProbeInterval time.Duration
}

// PlatformConfig holds read-once platform properties.
type PlatformConfig struct {
	TVUIMode  bool
	SysfsRoot string
}

// APIConfig configures the HTTP control surface.
type APIConfig struct {
	ListenAddr string
	RateLimit  int // requests per minute per client
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool
	ListenAddr string
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig mirrors the YAML file layout. Pointer fields distinguish
// "absent" from zero values so that defaults survive partial files.
type FileConfig struct {
	LogLevel   string                `yaml:"logLevel,omitempty"`
	Service    *FileServiceConfig    `yaml:"service,omitempty"`
	Connection *FileConnectionConfig `yaml:"connection,omitempty"`
	DTVKit     *FileDTVKitConfig     `yaml:"dtvkit,omitempty"`
	Platform   *FilePlatformConfig   `yaml:"platform,omitempty"`
	API        *FileAPIConfig        `yaml:"api,omitempty"`
	Metrics    *FileMetricsConfig    `yaml:"metrics,omitempty"`
	Telemetry  *FileTelemetryConfig  `yaml:"telemetry,omitempty"`
}

type FileServiceConfig struct {
	SocketDir   string `yaml:"socketDir,omitempty"`
	Name        string `yaml:"name,omitempty"`
	ConnectType string `yaml:"connectType,omitempty"`
}

type FileConnectionConfig struct {
	RetryInterval string `yaml:"retryInterval,omitempty"`
	DeathDelay    string `yaml:"deathDelay,omitempty"`
	Backoff       string `yaml:"backoff,omitempty"`
	MaxInterval   string `yaml:"maxInterval,omitempty"`
	CallTimeout   string `yaml:"callTimeout,omitempty"`
}

type FileDTVKitConfig struct {
	Enabled       *bool  `yaml:"enabled,omitempty"`
	Name          string `yaml:"name,omitempty"`
	ProbeAttempts *int   `yaml:"probeAttempts,omitempty"`
	ProbeInterval string `yaml:"probeInterval,omitempty"`
}

type FilePlatformConfig struct {
	TVUIMode  *bool  `yaml:"tvUIMode,omitempty"`
	SysfsRoot string `yaml:"sysfsRoot,omitempty"`
}

type FileAPIConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	RateLimit  *int   `yaml:"rateLimit,omitempty"`
}

type FileMetricsConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type FileTelemetryConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Service: ServiceConfig{
			SocketDir:   "/run/tvinput",
			Name:        "tvserver",
			ConnectType: ConnectTypeHAL,
		},
		Connection: ConnectionConfig{
			RetryInterval: 200 * time.Millisecond,
			DeathDelay:    200 * time.Millisecond,
			Backoff:       BackoffFixed,
			MaxInterval:   5 * time.Second,
		},
		DTVKit: DTVKitConfig{
			Enabled:       true,
			Name:          "dtvkit",
			ProbeAttempts: 2,
			ProbeInterval: 500 * time.Millisecond,
		},
		Platform: PlatformConfig{
			SysfsRoot: "/sys",
		},
		API: APIConfig{
			ListenAddr: ":8088",
			RateLimit:  600,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Telemetry: TelemetryConfig{
			Exporter:     ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
