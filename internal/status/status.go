// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status holds the result codes and error taxonomy shared by the
// arbiter, the connection manager and the HTTP surface.
package status

import "fmt"

// Code is the integer result returned by the platform service and by arbiter
// operations. Zero means success; negative values are negated errno numbers.
type Code int32

// Negated Linux errno values reported by the platform service.
const (
	OK Code = 0

	NoDevice       Code = -19 // ENODEV
	InvalidArg     Code = -22 // EINVAL
	AlreadyExists  Code = -17 // EEXIST
	Busy           Code = -16 // EBUSY
	IOError        Code = -5  // EIO
	NotImplemented Code = -38 // ENOSYS
)

// IsOK reports whether c signals success.
func (c Code) IsOK() bool { return c == OK }

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Busy:
		return "BUSY"
	}
	if c < 0 {
		return fmt.Sprintf("ERRNO(%d)", -int32(c))
	}
	return fmt.Sprintf("CODE(%d)", int32(c))
}

// Stream is the coarse status reported by stream and device operations.
type Stream string

const (
	StatusOK               Stream = "OK"
	StatusInvalidArguments Stream = "INVALID_ARGUMENTS"
	StatusNoResource       Stream = "NO_RESOURCE"
	StatusInvalidState     Stream = "INVALID_STATE"
	StatusUnknown          Stream = "UNKNOWN"
)

// FromErrno maps a platform result (0 or a negated errno) to a Stream status.
func FromErrno(c Code) Stream {
	switch c {
	case OK:
		return StatusOK
	case Busy:
		return StatusNoResource
	case AlreadyExists:
		return StatusInvalidState
	case InvalidArg:
		return StatusInvalidArguments
	default:
		return StatusUnknown
	}
}
