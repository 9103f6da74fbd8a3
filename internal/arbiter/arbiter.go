// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package arbiter serializes start, stop and switch requests against the
// single active TV input source.
//
// All arbitration state is owned by one actor goroutine and reached through
// request/response messages. Remote calls never run on the actor: the actor
// mutates state, emits a plan of remote calls onto an ordered dispatch lane
// and returns. Callers wait for the plan's outcome and settle it back with
// the actor, which detects whether state moved on while the call was in
// flight.
package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/telemetry"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

const (
	opStart  = "start"
	opStop   = "stop"
	opSwitch = "switch"
	opReset  = "reset"

	laneDepth = 64
)

// Remote is the subset of platform service operations the arbiter issues.
// *tvserver.Remote implements it.
type Remote interface {
	StartTv(ctx context.Context) (status.Code, error)
	StopTv(ctx context.Context) (status.Code, error)
	SetTunnelID(ctx context.Context, tunnelID int32) (status.Code, error)
	SwitchInputSrc(ctx context.Context, src int32) (status.Code, error)
}

// DTVKit is the software tuner session. *tvserver.Remote implements it.
type DTVKit interface {
	Request(ctx context.Context, method, payload string) (string, error)
}

// Options configures an Arbiter.
type Options struct {
	Remote Remote
	// DTVKit is nil when no DTV-kit session is available; DTV-kit sources
	// then only update local state.
	DTVKit DTVKit
	Tracer trace.Tracer
}

// Arbiter owns the arbitration state. It is safe for concurrent use.
type Arbiter struct {
	remote Remote
	dtvkit DTVKit
	tracer trace.Tracer
	logger zerolog.Logger

	st   state
	cmds chan func(*state)
	jobs chan *job

	quit      chan struct{}
	actorDone chan struct{}
	laneDone  chan struct{}
	closeOnce sync.Once
}

// New starts an Arbiter with cleared state.
func New(opts Options) *Arbiter {
	if opts.Tracer == nil {
		opts.Tracer = telemetry.Tracer("github.com/ManuGH/tvinput/internal/arbiter")
	}
	a := &Arbiter{
		remote:    opts.Remote,
		dtvkit:    opts.DTVKit,
		tracer:    opts.Tracer,
		logger:    xglog.WithComponent("arbiter"),
		st:        newState(),
		cmds:      make(chan func(*state)),
		jobs:      make(chan *job, laneDepth),
		quit:      make(chan struct{}),
		actorDone: make(chan struct{}),
		laneDone:  make(chan struct{}),
	}
	metrics.SetQueueDepths(0, 0, 0)
	go a.run()
	go a.lane()
	return a
}

func (a *Arbiter) run() {
	defer close(a.actorDone)
	for {
		select {
		case fn := <-a.cmds:
			fn(&a.st)
		case <-a.quit:
			return
		}
	}
}

// do runs fn on the actor and waits for it to finish.
func (a *Arbiter) do(ctx context.Context, fn func(*state)) error {
	done := make(chan struct{})
	cmd := func(st *state) {
		defer close(done)
		fn(st)
	}
	select {
	case a.cmds <- cmd:
	case <-a.quit:
		return status.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Start marks src active and current. DTV-kit sources request the DTV-kit
// device and report OK; other sources push the tunnel id and start the
// platform pipeline, returning its result. There is no conflict check;
// callers consult CheckSourceStatus first.
func (a *Arbiter) Start(ctx context.Context, src source.ID) (status.Code, error) {
	return a.mutate(ctx, opStart, src, func(st *state) []step {
		st.active = true
		st.current = src
		if src.IsDTVKit() {
			return a.dtvkitSteps(tvserver.DTVKitRequestDevice)
		}
		tunnelID := st.tunnelID
		return []step{
			{name: tvserver.OpSetTunnelID, call: func(ctx context.Context) (status.Code, error) {
				return a.remote.SetTunnelID(ctx, tunnelID)
			}},
			{name: tvserver.OpStartTv, call: a.remote.StartTv, result: true},
		}
	})
}

// Stop clears the active flag, and the current source when src is current.
// DTV-kit sources release the DTV-kit device and report OK; other sources
// stop the platform pipeline and clear the remote tunnel id. The local
// tunnel id is kept.
func (a *Arbiter) Stop(ctx context.Context, src source.ID) (status.Code, error) {
	return a.mutate(ctx, opStop, src, func(st *state) []step {
		st.active = false
		if src == st.current {
			st.current = source.Invalid
		}
		return a.stopSteps(src)
	})
}

// SwitchSource records src as current unconditionally and, for non DTV-kit
// sources, switches the platform input.
func (a *Arbiter) SwitchSource(ctx context.Context, src source.ID) (status.Code, error) {
	return a.mutate(ctx, opSwitch, src, func(st *state) []step {
		st.current = src
		if src.IsDTVKit() {
			return nil
		}
		return []step{{
			name: tvserver.OpSwitchInputSrc,
			call: func(ctx context.Context) (status.Code, error) {
				return a.remote.SwitchInputSrc(ctx, int32(src))
			},
			result: true,
		}}
	})
}

// CheckSourceStatus is the conflict check callers run before a transition.
// It returns status.Busy and parks src on the start queue (wantActive false
// while the current source is active) or the stop queue (wantActive true
// while it is inactive). Independently, a DTV-kit src checked with
// wantActive while the current source is active is parked on the hold
// queue.
func (a *Arbiter) CheckSourceStatus(ctx context.Context, src source.ID, wantActive bool) (status.Code, error) {
	code := status.OK
	var snap Snapshot
	err := a.do(ctx, func(st *state) {
		if st.current != source.Invalid && src.Valid() && st.current != src {
			if !wantActive && st.active {
				st.start.push(src)
				code = status.Busy
				metrics.ArbiterBusyTotal.WithLabelValues("start").Inc()
			}
			if wantActive && !st.active {
				st.stop.push(src)
				code = status.Busy
				metrics.ArbiterBusyTotal.WithLabelValues("stop").Inc()
			}
		}
		if wantActive && st.active && src.IsDTVKit() {
			st.hold.push(src)
		}
		publishDepths(st)
		snap = st.snapshot()
	})
	if err != nil {
		return status.OK, err
	}

	metrics.RecordArbiterOp("check", code.String())
	a.logger.Debug().
		Str(xglog.FieldEvent, "arbiter.check").
		Stringer(xglog.FieldCurrent, snap.Current).
		Stringer(xglog.FieldSource, src).
		Bool(xglog.FieldActive, snap.Active).
		Bool(xglog.FieldWantActive, wantActive).
		Stringer(xglog.FieldResult, code).
		Msg("source status checked")
	return code, nil
}

// NextWaiting pops the start queue (wantActive) or the stop queue.
// source.Invalid means the queue was empty.
func (a *Arbiter) NextWaiting(ctx context.Context, wantActive bool) (source.ID, error) {
	id := source.Invalid
	err := a.do(ctx, func(st *state) {
		if wantActive {
			id = st.start.pop()
		} else {
			id = st.stop.pop()
		}
		publishDepths(st)
	})
	return id, err
}

// NextHeld pops the hold queue. source.Invalid means it was empty.
func (a *Arbiter) NextHeld(ctx context.Context) (source.ID, error) {
	id := source.Invalid
	err := a.do(ctx, func(st *state) {
		id = st.hold.pop()
		publishDepths(st)
	})
	return id, err
}

// SetTunnelID sets the tunnel id pushed to the platform on the next start.
func (a *Arbiter) SetTunnelID(ctx context.Context, id int32) error {
	return a.do(ctx, func(st *state) { st.tunnelID = id })
}

// SetStreamGivenID records the stream id handed out for diagnostics.
func (a *Arbiter) SetStreamGivenID(ctx context.Context, id int32) error {
	return a.do(ctx, func(st *state) { st.streamGivenID = id })
}

// SetDeviceGivenID records the device id handed out for diagnostics.
func (a *Arbiter) SetDeviceGivenID(ctx context.Context, id int32) error {
	return a.do(ctx, func(st *state) { st.deviceGivenID = id })
}

// Snapshot returns a copy of the current state.
func (a *Arbiter) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := a.do(ctx, func(st *state) { snap = st.snapshot() })
	return snap, err
}

// Reset stops the active source, releases a held DTV-kit source and clears
// every queue and scalar.
func (a *Arbiter) Reset(ctx context.Context) error {
	var j *job
	err := a.do(ctx, func(st *state) {
		var steps []step
		if st.active && st.current != source.Invalid {
			steps = append(steps, a.stopSteps(st.current)...)
		}
		if held := st.hold.pop(); held != source.Invalid {
			steps = append(steps, a.dtvkitSteps(tvserver.DTVKitReleaseDevice)...)
		}
		st.clear()
		publishDepths(st)
		if len(steps) > 0 {
			j = newJob(ctx, opReset, source.Invalid, st.epoch, steps...)
			a.jobs <- j
		}
	})
	if err != nil {
		return err
	}

	a.logger.Info().Str(xglog.FieldEvent, "arbiter.reset").Msg("arbitration state reset")
	if j == nil {
		metrics.RecordArbiterOp(opReset, status.OK.String())
		return nil
	}
	select {
	case out := <-j.done:
		metrics.RecordArbiterOp(opReset, resultLabel(out))
		return out.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close resets the state, then stops the actor and the dispatch lane.
// Operations after Close fail with status.ErrClosed.
func (a *Arbiter) Close(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		err = a.Reset(ctx)
		close(a.quit)
		<-a.actorDone
		close(a.jobs)
		<-a.laneDone
	})
	return err
}

// mutate applies plan on the actor, runs the resulting remote calls on the
// dispatch lane and settles the outcome.
func (a *Arbiter) mutate(ctx context.Context, op string, src source.ID, plan func(*state) []step) (status.Code, error) {
	if !src.Valid() {
		metrics.RecordArbiterOp(op, "invalid_source")
		return status.InvalidArg, fmt.Errorf("%s: %w: %d", op, source.ErrUnknownSource, int32(src))
	}

	ctx, span := a.tracer.Start(ctx, "arbiter."+op,
		trace.WithAttributes(telemetry.ArbiterAttributes(op, src.String())...))
	defer span.End()

	var j *job
	err := a.do(ctx, func(st *state) {
		steps := plan(st)
		st.epoch++
		publishDepths(st)
		if len(steps) > 0 {
			j = newJob(ctx, op, src, st.epoch, steps...)
			a.jobs <- j
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return status.OK, err
	}

	out := outcome{code: status.OK}
	if j != nil {
		select {
		case out = <-j.done:
		case <-ctx.Done():
			metrics.RecordArbiterOp(op, "canceled")
			span.SetStatus(codes.Error, "canceled")
			return status.OK, ctx.Err()
		}
		a.settle(j)
	}

	metrics.RecordArbiterOp(op, resultLabel(out))
	span.SetAttributes(attribute.Int(telemetry.RemoteResultKey, int(out.code)))
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
	}

	a.logger.Info().
		Err(out.err).
		Str(xglog.FieldEvent, "arbiter."+op).
		Stringer(xglog.FieldSource, src).
		Stringer(xglog.FieldResult, out.code).
		Msg("source operation finished")
	return out.code, out.err
}

// settle reports the outcome of j back to the actor. An outcome whose epoch
// is behind the actor's arrived after another mutation and is counted as
// stale; the state itself is left as the later mutation set it.
func (a *Arbiter) settle(j *job) {
	var (
		stale bool
		snap  Snapshot
	)
	if err := a.do(context.Background(), func(st *state) {
		stale = st.epoch != j.epoch
		if stale {
			snap = st.snapshot()
		}
	}); err != nil || !stale {
		return
	}

	metrics.ArbiterStaleOutcomesTotal.WithLabelValues(j.op).Inc()
	a.logger.Debug().
		Str(xglog.FieldEvent, "arbiter.stale_outcome").
		Str(xglog.FieldOp, j.op).
		Stringer(xglog.FieldSource, j.source).
		Stringer(xglog.FieldCurrent, snap.Current).
		Bool(xglog.FieldActive, snap.Active).
		Msg("state moved on while the remote call was in flight")
}

func (a *Arbiter) stopSteps(src source.ID) []step {
	if src.IsDTVKit() {
		return a.dtvkitSteps(tvserver.DTVKitReleaseDevice)
	}
	return []step{
		{name: tvserver.OpStopTv, call: a.remote.StopTv, result: true},
		{name: tvserver.OpSetTunnelID, call: func(ctx context.Context) (status.Code, error) {
			return a.remote.SetTunnelID(ctx, Unset)
		}},
	}
}

// dtvkitSteps issues a DTV-kit device request. Its failure does not change
// the OK outcome of the operation.
func (a *Arbiter) dtvkitSteps(method string) []step {
	if a.dtvkit == nil {
		return nil
	}
	return []step{{
		name: method,
		call: func(ctx context.Context) (status.Code, error) {
			_, err := a.dtvkit.Request(ctx, method, dtvkitPayload)
			return status.OK, err
		},
	}}
}

var dtvkitPayload = func() string {
	b, _ := json.Marshal([]string{""})
	return string(b)
}()

func publishDepths(st *state) {
	metrics.SetQueueDepths(len(st.start), len(st.stop), len(st.hold))
}

func resultLabel(out outcome) string {
	if out.err != nil {
		return "error"
	}
	return out.code.String()
}
