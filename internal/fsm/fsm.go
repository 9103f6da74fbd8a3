// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a table-driven state machine for string-typed states.
package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when the current state has no edge for
// the fired event.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition is one edge of the table.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// Observer runs after a transition commits, in commit order. It must not
// fire events on the same Machine.
type Observer[S ~string, E ~string] func(from, to S, event E)

type edge[S ~string, E ~string] struct {
	from  S
	event E
}

// Machine holds the current state. It is safe for concurrent use.
type Machine[S ~string, E ~string] struct {
	mu        sync.Mutex
	state     S
	edges     map[edge[S, E]]S
	observers []Observer[S, E]
}

// New builds a machine in initial. Two edges leaving the same state on the
// same event are rejected.
func New[S ~string, E ~string](initial S, table []Transition[S, E]) (*Machine[S, E], error) {
	edges := make(map[edge[S, E]]S, len(table))
	for _, t := range table {
		k := edge[S, E]{t.From, t.Event}
		if prev, dup := edges[k]; dup {
			return nil, fmt.Errorf("fsm: %s on %s leads to both %s and %s", t.From, t.Event, prev, t.To)
		}
		edges[k] = t.To
	}
	return &Machine[S, E]{state: initial, edges: edges}, nil
}

// Observe registers fn for every later transition.
func (m *Machine[S, E]) Observe(fn Observer[S, E]) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Can reports whether event is accepted in the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edges[edge[S, E]{m.state, event}]
	return ok
}

// Fire applies event and returns the new state. On ErrInvalidTransition the
// state is unchanged and returned as is. Observers run before Fire returns
// and under the machine lock, so they see transitions in order.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	to, ok := m.edges[edge[S, E]{from, event}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
	}
	m.state = to
	for _, fn := range m.observers {
		fn(from, to, event)
	}
	return to, nil
}
