// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for tvinputd.
//
// Values are resolved with the precedence ENV > YAML file > defaults and
// validated as a whole before they are handed to the daemon.
package config
