// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package arbiter

import (
	"context"
	"time"

	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
)

// step is one remote call of a plan. Only the step marked result decides
// the outcome; failures of the other steps are logged.
type step struct {
	name   string
	call   func(ctx context.Context) (status.Code, error)
	result bool
}

// job is a plan produced by the actor and executed on the dispatch lane in
// the order the actor produced it.
type job struct {
	ctx    context.Context
	op     string
	source source.ID
	epoch  uint64
	steps  []step
	done   chan outcome
}

type outcome struct {
	code status.Code
	err  error
}

func newJob(ctx context.Context, op string, src source.ID, epoch uint64, steps ...step) *job {
	return &job{
		ctx:    ctx,
		op:     op,
		source: src,
		epoch:  epoch,
		steps:  steps,
		done:   make(chan outcome, 1),
	}
}

// lane executes jobs one at a time until jobs is closed.
func (a *Arbiter) lane() {
	defer close(a.laneDone)
	for j := range a.jobs {
		j.done <- a.execute(j)
	}
}

func (a *Arbiter) execute(j *job) outcome {
	out := outcome{code: status.OK}
	for _, s := range j.steps {
		start := time.Now()
		code, err := s.call(j.ctx)
		metrics.ArbiterRemoteDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

		if s.result {
			out = outcome{code: code, err: err}
			continue
		}
		if err != nil || !code.IsOK() {
			a.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "arbiter.step_failed").
				Str(xglog.FieldOp, j.op).
				Str("step", s.name).
				Stringer(xglog.FieldSource, j.source).
				Int32(xglog.FieldResult, int32(code)).
				Msg("auxiliary remote call failed")
		}
	}
	return out
}
