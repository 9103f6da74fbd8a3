// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvinput

import (
	"context"

	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/source"
)

// reconcile runs after every (re)connect. Local arbitration state is
// authoritative and is never rewritten; a platform reporting a different
// current input is logged and counted.
func (c *Coordinator) reconcile(ctx context.Context, generation uint64) {
	snap, err := c.arbiter.Snapshot(ctx)
	if err != nil {
		return
	}
	if snap.Current == source.Invalid || snap.Current.IsDTVKit() {
		return
	}

	remote, err := c.remote.GetCurrentInputSrc(ctx)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "tvinput.reconcile_failed").
			Uint64(xglog.FieldGeneration, generation).
			Msg("current input not readable after reconnect")
		return
	}
	if source.ID(remote) == snap.Current {
		return
	}

	metrics.ReconcileDivergenceTotal.Inc()
	c.logger.Warn().
		Str(xglog.FieldEvent, "tvinput.reconcile_divergence").
		Uint64(xglog.FieldGeneration, generation).
		Stringer(xglog.FieldCurrent, snap.Current).
		Stringer("remote_source", source.ID(remote)).
		Bool(xglog.FieldActive, snap.Active).
		Msg("platform input differs from arbitration state after reconnect")
}
