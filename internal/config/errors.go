// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

// ErrUnknownConfigField marks a YAML key that has no matching setting.
// Typos must fail loudly rather than silently fall back to defaults.
var ErrUnknownConfigField = errors.New("unknown config field")

// ErrUnsupportedFormat is returned for config files without a .yaml or
// .yml extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")
