// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package arbiter

import (
	"github.com/ManuGH/tvinput/internal/source"
)

// Unset is the sentinel for tunnel and given ids.
const Unset int32 = -1

// queue is a FIFO of source ids. An empty pop yields source.Invalid.
type queue []source.ID

func (q *queue) push(id source.ID) { *q = append(*q, id) }

func (q *queue) pop() source.ID {
	if len(*q) == 0 {
		return source.Invalid
	}
	id := (*q)[0]
	*q = (*q)[1:]
	if len(*q) == 0 {
		*q = nil
	}
	return id
}

func (q queue) snapshot() []source.ID {
	if len(q) == 0 {
		return nil
	}
	return append([]source.ID(nil), q...)
}

// state is owned by the actor goroutine and never shared.
type state struct {
	current       source.ID
	active        bool
	tunnelID      int32
	streamGivenID int32
	deviceGivenID int32

	start queue
	stop  queue
	hold  queue

	// epoch advances on every mutation that can invalidate an in-flight
	// remote outcome.
	epoch uint64
}

func newState() state {
	return state{
		current:       source.Invalid,
		tunnelID:      Unset,
		streamGivenID: Unset,
		deviceGivenID: Unset,
	}
}

func (st *state) clear() {
	epoch := st.epoch + 1
	*st = newState()
	st.epoch = epoch
}

// Snapshot is a point-in-time copy of the arbitration state.
type Snapshot struct {
	Current       source.ID   `json:"current"`
	Active        bool        `json:"active"`
	TunnelID      int32       `json:"tunnelId"`
	StreamGivenID int32       `json:"streamGivenId"`
	DeviceGivenID int32       `json:"deviceGivenId"`
	StartQueue    []source.ID `json:"startQueue"`
	StopQueue     []source.ID `json:"stopQueue"`
	HoldQueue     []source.ID `json:"holdQueue"`
}

func (st *state) snapshot() Snapshot {
	return Snapshot{
		Current:       st.current,
		Active:        st.active,
		TunnelID:      st.tunnelID,
		StreamGivenID: st.streamGivenID,
		DeviceGivenID: st.deviceGivenID,
		StartQueue:    st.start.snapshot(),
		StopQueue:     st.stop.snapshot(),
		HoldQueue:     st.hold.snapshot(),
	}
}
