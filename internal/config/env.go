// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tvinput/internal/log"
)

// Environment variable names.
const (
	EnvLogLevel        = "TVINPUT_LOG_LEVEL"
	EnvSocketDir       = "TVINPUT_SOCKET_DIR"
	EnvServiceName     = "TVINPUT_SERVICE_NAME"
	EnvConnectType     = "TVINPUT_CONNECT_TYPE"
	EnvRetryInterval   = "TVINPUT_RETRY_INTERVAL"
	EnvDeathDelay      = "TVINPUT_DEATH_DELAY"
	EnvBackoff         = "TVINPUT_BACKOFF"
	EnvMaxInterval     = "TVINPUT_BACKOFF_MAX_INTERVAL"
	EnvCallTimeout     = "TVINPUT_CALL_TIMEOUT"
	EnvDTVKitEnabled   = "TVINPUT_DTVKIT_ENABLED"
	EnvDTVKitName      = "TVINPUT_DTVKIT_NAME"
	EnvPlatformTV      = "TVINPUT_PLATFORM_TV"
	EnvSysfsRoot       = "TVINPUT_SYSFS_ROOT"
	EnvAPIListen       = "TVINPUT_API_LISTEN"
	EnvAPIRateLimit    = "TVINPUT_API_RATE_LIMIT"
	EnvMetricsEnabled  = "TVINPUT_METRICS_ENABLED"
	EnvMetricsListen   = "TVINPUT_METRICS_LISTEN"
	EnvTraceEnabled    = "TVINPUT_TELEMETRY_ENABLED"
	EnvTraceExporter   = "TVINPUT_TELEMETRY_EXPORTER"
	EnvTraceEndpoint   = "TVINPUT_TELEMETRY_ENDPOINT"
	EnvTraceSampleRate = "TVINPUT_TELEMETRY_SAMPLING_RATE"
)

// lookupEnv returns the parsed value of key, or def when the variable is
// unset, empty or unparsable. Unparsable values are logged at warn level so a
// typo in a unit file does not pass silently.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	logger := log.WithComponent("config")
	v, err := parse(raw)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "config.env_invalid").
			Str("key", key).
			Str("value", raw).
			Msg("ignoring unparsable environment override")
		return def
	}
	logger.Debug().
		Str(log.FieldEvent, "config.env_override").
		Str("key", key).
		Msg("environment override applied")
	return v
}

// ParseString returns the value of key or def when unset or empty.
func ParseString(key, def string) string {
	return lookupEnv(key, def, func(s string) (string, error) { return s, nil })
}

// ParseInt returns key as a base-10 integer.
func ParseInt(key string, def int) int {
	return lookupEnv(key, def, strconv.Atoi)
}

// ParseDuration returns key in time.ParseDuration syntax ("250ms", "5s").
func ParseDuration(key string, def time.Duration) time.Duration {
	return lookupEnv(key, def, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, def bool) bool {
	return lookupEnv(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	})
}

// ParseFloat returns key as a float64.
func ParseFloat(key string, def float64) float64 {
	return lookupEnv(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}
