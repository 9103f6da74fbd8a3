// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// Wiring errors. Bootstrap never produces them; they guard hand-built daemons
// such as the ones in tests.
var (
	ErrMissingLogger     = errors.New("daemon: no logger configured")
	ErrMissingAPIHandler = errors.New("daemon: no control API handler")
	ErrMissingManager    = errors.New("daemon: app has no server manager")
)

// ErrManagerNotStarted is returned by Shutdown before Start has bound the
// listeners.
var ErrManagerNotStarted = errors.New("daemon: servers not running")
