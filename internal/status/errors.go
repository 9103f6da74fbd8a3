// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package status

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotConnected        = errors.New("tvserver: not connected")
	ErrStaleConnection     = errors.New("tvserver: connection generation superseded")
	ErrTransport           = errors.New("tvserver: transport failure")
	ErrServiceNotPublished = errors.New("tvserver: service not published")
	ErrClosed              = errors.New("tvserver: closed")
)

// RemoteError is a rich error type that wraps the sentinel errors with context.
type RemoteError struct {
	Sentinel   error
	Op         string
	Generation uint64
	Err        error // Nested lower-level error (e.g. net.OpError)
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s (op=%s gen=%d)", e.Sentinel, e.Op, e.Generation)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the nested cause to errors.Is/As.
func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// IsTransient reports whether err is a connection-level failure that a
// later call on a fresh connection might not hit.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStaleConnection) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrNotConnected)
}
