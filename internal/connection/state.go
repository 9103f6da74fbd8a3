// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package connection

import (
	"github.com/ManuGH/tvinput/internal/fsm"
)

// State is the reconnection state of a Manager.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosed       State = "closed"
)

type trigger string

const (
	triggerDial        trigger = "dial"
	triggerEstablished trigger = "established"
	triggerDied        trigger = "died"
	triggerClose       trigger = "close"
)

// transitions encodes DISCONNECTED -> CONNECTING -> CONNECTED -> DISCONNECTED,
// with CLOSED reachable from every live state.
var transitions = []fsm.Transition[State, trigger]{
	{From: StateDisconnected, Event: triggerDial, To: StateConnecting},
	{From: StateConnecting, Event: triggerEstablished, To: StateConnected},
	{From: StateConnected, Event: triggerDied, To: StateDisconnected},
	{From: StateDisconnected, Event: triggerClose, To: StateClosed},
	{From: StateConnecting, Event: triggerClose, To: StateClosed},
	{From: StateConnected, Event: triggerClose, To: StateClosed},
}

func newMachine() *fsm.Machine[State, trigger] {
	m, err := fsm.New(StateDisconnected, transitions)
	if err != nil {
		// The table is static; a duplicate edge is a programming error.
		panic(err)
	}
	return m
}
