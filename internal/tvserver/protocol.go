// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tvserver implements the client and server sides of the platform
// TV service protocol: CBOR frames over a persistent unix socket carrying
// request/response pairs and asynchronous events.
package tvserver

import (
	"errors"
	"fmt"

	"github.com/ManuGH/tvinput/internal/status"
)

type frameKind uint8

const (
	kindRequest  frameKind = 1
	kindResponse frameKind = 2
	kindEvent    frameKind = 3
)

// frame is the single wire envelope. Unused fields are omitted on the wire.
type frame struct {
	Kind    frameKind `cbor:"k"`
	ID      uint64    `cbor:"id,omitempty"`
	Op      string    `cbor:"op,omitempty"`
	Result  int32     `cbor:"r,omitempty"`
	Ints    []int32   `cbor:"i,omitempty"`
	Strings []string  `cbor:"s,omitempty"`
	Error   string    `cbor:"e,omitempty"`
	MsgType int32     `cbor:"m,omitempty"`
}

// Args carries the positional arguments of a remote operation.
type Args struct {
	Ints    []int32
	Strings []string
}

// Ints builds Args from integer arguments.
func Ints(v ...int32) Args { return Args{Ints: v} }

// Strings builds Args from string arguments.
func Strings(v ...string) Args { return Args{Strings: v} }

// Reply is the remote result: a status code plus optional payload fields.
type Reply struct {
	Result  status.Code
	Ints    []int32
	Strings []string
}

// String returns the first string payload, or "" when absent.
func (r Reply) String() string {
	if len(r.Strings) == 0 {
		return ""
	}
	return r.Strings[0]
}

// Event is an asynchronous notification pushed by the service.
type Event struct {
	MsgType int32
	Ints    []int32
	Strings []string
}

// Callback receives events on the client's read goroutine. It must not call
// back into the same client synchronously.
type Callback func(Event)

var (
	// ErrConnectionClosed is returned for calls that were pending or issued
	// after the underlying connection ended.
	ErrConnectionClosed = errors.New("tvserver: connection closed")

	// ErrShortReply is returned when a reply lacks the fields an operation needs.
	ErrShortReply = errors.New("tvserver: short reply")
)

// ServiceError is an application-level failure reported by the service
// itself, as opposed to a transport failure.
type ServiceError struct {
	Op      string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("tvserver: %s: %s", e.Op, e.Message)
}

func (f frame) args() Args {
	return Args{Ints: f.Ints, Strings: f.Strings}
}

func (f frame) reply() Reply {
	return Reply{Result: status.Code(f.Result), Ints: f.Ints, Strings: f.Strings}
}

func (f frame) event() Event {
	return Event{MsgType: f.MsgType, Ints: f.Ints, Strings: f.Strings}
}
