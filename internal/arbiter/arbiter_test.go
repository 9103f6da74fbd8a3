// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package arbiter

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRemote records every call in order.
type fakeRemote struct {
	mu        sync.Mutex
	calls     []string
	startCode status.Code
	startErr  error

	// When block is set, StartTv signals entered and waits for block.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) StartTv(context.Context) (status.Code, error) {
	f.record("startTv")
	if f.block != nil {
		close(f.entered)
		<-f.block
	}
	return f.startCode, f.startErr
}

func (f *fakeRemote) StopTv(context.Context) (status.Code, error) {
	f.record("stopTv")
	return status.OK, nil
}

func (f *fakeRemote) SetTunnelID(_ context.Context, id int32) (status.Code, error) {
	f.record(fmt.Sprintf("setTunnelId(%d)", id))
	return status.OK, nil
}

func (f *fakeRemote) SwitchInputSrc(_ context.Context, src int32) (status.Code, error) {
	f.record(fmt.Sprintf("switchInputSrc(%d)", src))
	return status.OK, nil
}

type fakeDTVKit struct {
	mu      sync.Mutex
	methods []string
	payload string
	err     error
}

func (f *fakeDTVKit) Request(_ context.Context, method, payload string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	f.payload = payload
	return "", f.err
}

func (f *fakeDTVKit) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func newArbiter(t *testing.T, remote *fakeRemote, dtv DTVKit) *Arbiter {
	t.Helper()
	a := New(Options{Remote: remote, DTVKit: dtv})
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func snapshot(t *testing.T, a *Arbiter) Snapshot {
	t.Helper()
	snap, err := a.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func TestInitialState(t *testing.T) {
	a := newArbiter(t, &fakeRemote{}, nil)
	want := Snapshot{Current: source.Invalid, TunnelID: Unset, StreamGivenID: Unset, DeviceGivenID: Unset}
	if diff := cmp.Diff(want, snapshot(t, a)); diff != "" {
		t.Errorf("initial snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioBusyQueueing(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, nil)

	code, err := a.Start(ctx, source.HDMI1)
	require.NoError(t, err)
	require.Equal(t, status.OK, code)
	snap := snapshot(t, a)
	assert.Equal(t, source.HDMI1, snap.Current)
	assert.True(t, snap.Active)

	code, err = a.CheckSourceStatus(ctx, source.AV1, false)
	require.NoError(t, err)
	assert.Equal(t, status.Busy, code)
	assert.Equal(t, []source.ID{source.AV1}, snapshot(t, a).StartQueue)

	_, err = a.Stop(ctx, source.HDMI1)
	require.NoError(t, err)
	snap = snapshot(t, a)
	assert.Equal(t, source.Invalid, snap.Current)
	assert.False(t, snap.Active)

	next, err := a.NextWaiting(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, source.AV1, next)

	next, err = a.NextWaiting(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, source.Invalid, next)
}

func TestScenarioDTVKitHold(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, nil)

	_, err := a.Start(ctx, source.HDMI2)
	require.NoError(t, err)

	code, err := a.CheckSourceStatus(ctx, source.DTVKit, true)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)

	snap := snapshot(t, a)
	assert.Equal(t, []source.ID{source.DTVKit}, snap.HoldQueue)
	assert.Empty(t, snap.StartQueue)
	assert.Empty(t, snap.StopQueue)

	held, err := a.NextHeld(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.DTVKit, held)
	held, err = a.NextHeld(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.Invalid, held)
}

func TestCheckWantActiveWhileInactiveQueuesStop(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, nil)

	_, err := a.SwitchSource(ctx, source.HDMI1)
	require.NoError(t, err)

	code, err := a.CheckSourceStatus(ctx, source.HDMI2, true)
	require.NoError(t, err)
	assert.Equal(t, status.Busy, code)

	next, err := a.NextWaiting(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, source.HDMI2, next)
}

func TestCheckWithoutCurrentIsOK(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, nil)

	for _, want := range []bool{true, false} {
		code, err := a.CheckSourceStatus(ctx, source.AV1, want)
		require.NoError(t, err)
		assert.Equal(t, status.OK, code)
	}

	_, err := a.Start(ctx, source.AV1)
	require.NoError(t, err)
	code, err := a.CheckSourceStatus(ctx, source.AV1, false)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code, "checking the current source never conflicts")

	code, err = a.CheckSourceStatus(ctx, source.Invalid, false)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	assert.Empty(t, snapshot(t, a).StartQueue)
}

func TestStartQueueFIFO(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, nil)
	_, err := a.Start(ctx, source.TV)
	require.NoError(t, err)

	order := []source.ID{source.HDMI3, source.AV2, source.HDMI1, source.VGA, source.HDMI3}
	for _, id := range order {
		code, err := a.CheckSourceStatus(ctx, id, false)
		require.NoError(t, err)
		require.Equal(t, status.Busy, code)
	}
	assert.Equal(t, float64(len(order)), testutil.ToFloat64(metrics.ArbiterQueueDepth.WithLabelValues("start")))

	var got []source.ID
	for {
		id, err := a.NextWaiting(ctx, true)
		require.NoError(t, err)
		if id == source.Invalid {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, order, got)
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	a := newArbiter(t, remote, nil)

	for i := 0; i < 2; i++ {
		code, err := a.Start(ctx, source.HDMI4)
		require.NoError(t, err)
		require.Equal(t, status.OK, code)
	}

	snap := snapshot(t, a)
	assert.Equal(t, source.HDMI4, snap.Current)
	assert.True(t, snap.Active)
	assert.Empty(t, snap.StartQueue)
	assert.Empty(t, snap.StopQueue)
	assert.Empty(t, snap.HoldQueue)
}

func TestRemoteCallSequences(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	a := newArbiter(t, remote, nil)

	require.NoError(t, a.SetTunnelID(ctx, 7))
	_, err := a.Start(ctx, source.HDMI1)
	require.NoError(t, err)
	_, err = a.SwitchSource(ctx, source.HDMI2)
	require.NoError(t, err)
	_, err = a.Stop(ctx, source.HDMI2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"setTunnelId(7)", "startTv",
		"switchInputSrc(6)",
		"stopTv", "setTunnelId(-1)",
	}, remote.Calls())
	assert.Equal(t, int32(7), snapshot(t, a).TunnelID, "stop keeps the local tunnel id")
}

func TestStopOtherSourceKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, nil)

	_, err := a.Start(ctx, source.HDMI1)
	require.NoError(t, err)
	_, err = a.Stop(ctx, source.AV1)
	require.NoError(t, err)

	snap := snapshot(t, a)
	assert.Equal(t, source.HDMI1, snap.Current)
	assert.False(t, snap.Active)
}

func TestRemoteResultIsReturned(t *testing.T) {
	ctx := context.Background()
	transportErr := errors.New("broken pipe")
	remote := &fakeRemote{startCode: status.IOError}
	a := newArbiter(t, remote, nil)

	code, err := a.Start(ctx, source.AV1)
	require.NoError(t, err)
	assert.Equal(t, status.IOError, code)
	assert.True(t, snapshot(t, a).Active, "the flag follows the request, not the result")

	remote.startCode, remote.startErr = status.OK, transportErr
	_, err = a.Start(ctx, source.AV1)
	require.ErrorIs(t, err, transportErr)
}

func TestDTVKitSourcesUseDTVKitSession(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	dtv := &fakeDTVKit{err: errors.New("dtvkit down")}
	a := newArbiter(t, remote, dtv)

	code, err := a.Start(ctx, source.DTVKit)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code, "dtvkit failures do not change the result")

	code, err = a.SwitchSource(ctx, source.DTVKitPIP)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)

	code, err = a.Stop(ctx, source.DTVKitPIP)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)

	assert.Empty(t, remote.Calls())
	assert.Equal(t, []string{tvserver.DTVKitRequestDevice, tvserver.DTVKitReleaseDevice}, dtv.Methods())
	assert.Equal(t, `[""]`, dtv.payload)
}

func TestDTVKitWithoutSessionOnlyUpdatesState(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	a := newArbiter(t, remote, nil)

	code, err := a.Start(ctx, source.DTVKit)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, source.DTVKit, snapshot(t, a).Current)
	assert.Empty(t, remote.Calls())
}

func TestInvalidSourceIsRejected(t *testing.T) {
	a := newArbiter(t, &fakeRemote{}, nil)

	code, err := a.Start(context.Background(), source.ID(42))
	require.ErrorIs(t, err, source.ErrUnknownSource)
	assert.Equal(t, status.InvalidArg, code)
	assert.Equal(t, source.Invalid, snapshot(t, a).Current)
}

func TestResetStopsActiveAndReleasesHeld(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	dtv := &fakeDTVKit{}
	a := newArbiter(t, remote, dtv)

	require.NoError(t, a.SetTunnelID(ctx, 3))
	require.NoError(t, a.SetStreamGivenID(ctx, 11))
	require.NoError(t, a.SetDeviceGivenID(ctx, 5))
	_, err := a.Start(ctx, source.HDMI1)
	require.NoError(t, err)
	_, err = a.CheckSourceStatus(ctx, source.DTVKit, true)
	require.NoError(t, err)
	_, err = a.CheckSourceStatus(ctx, source.AV1, false)
	require.NoError(t, err)

	require.NoError(t, a.Reset(ctx))

	want := Snapshot{Current: source.Invalid, TunnelID: Unset, StreamGivenID: Unset, DeviceGivenID: Unset}
	if diff := cmp.Diff(want, snapshot(t, a)); diff != "" {
		t.Errorf("snapshot after reset mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"setTunnelId(3)", "startTv", "stopTv", "setTunnelId(-1)"}, remote.Calls())
	assert.Equal(t, []string{tvserver.DTVKitReleaseDevice}, dtv.Methods())
}

func TestCloseRejectsLaterCalls(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	a := New(Options{Remote: remote})

	_, err := a.Start(ctx, source.AV1)
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))
	require.NoError(t, a.Close(ctx))

	assert.Equal(t, []string{"setTunnelId(-1)", "startTv", "stopTv", "setTunnelId(-1)"}, remote.Calls())

	_, err = a.Start(ctx, source.AV1)
	require.ErrorIs(t, err, status.ErrClosed)
	_, err = a.NextHeld(ctx)
	require.ErrorIs(t, err, status.ErrClosed)
}

func TestOutcomeSettledAfterStateMovedIsStale(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{block: make(chan struct{}), entered: make(chan struct{})}
	a := newArbiter(t, remote, nil)
	before := testutil.ToFloat64(metrics.ArbiterStaleOutcomesTotal.WithLabelValues(opStart))

	done := make(chan status.Code, 1)
	go func() {
		code, _ := a.Start(ctx, source.HDMI1)
		done <- code
	}()
	<-remote.entered

	// The actor stays responsive while the remote call is in flight.
	_, err := a.SwitchSource(ctx, source.DTVKit)
	require.NoError(t, err)
	assert.Equal(t, source.DTVKit, snapshot(t, a).Current)

	close(remote.block)
	select {
	case code := <-done:
		assert.Equal(t, status.OK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("start did not complete")
	}

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ArbiterStaleOutcomesTotal.WithLabelValues(opStart)))
	assert.Equal(t, source.DTVKit, snapshot(t, a).Current, "a stale outcome does not roll state back")
}

// TestAtMostOneActiveSource drives random operation sequences and compares
// the arbiter against a sequential model.
func TestAtMostOneActiveSource(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	ids := source.All()

	for round := 0; round < 20; round++ {
		a := New(Options{Remote: &fakeRemote{}, DTVKit: &fakeDTVKit{}})
		model := Snapshot{Current: source.Invalid, TunnelID: Unset, StreamGivenID: Unset, DeviceGivenID: Unset}

		for i := 0; i < 50; i++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(3) {
			case 0:
				_, err := a.Start(ctx, id)
				require.NoError(t, err)
				model.Current, model.Active = id, true
			case 1:
				_, err := a.Stop(ctx, id)
				require.NoError(t, err)
				model.Active = false
				if id == model.Current {
					model.Current = source.Invalid
				}
			case 2:
				_, err := a.SwitchSource(ctx, id)
				require.NoError(t, err)
				model.Current = id
			}

			got := snapshot(t, a)
			if diff := cmp.Diff(model, got); diff != "" {
				t.Fatalf("round %d step %d (-model +arbiter):\n%s", round, i, diff)
			}
			if got.Active {
				require.True(t, got.Current.Valid(), "an active flag always has a valid current source")
			}
		}
		require.NoError(t, a.Close(ctx))
	}
}

func TestConcurrentCallersDoNotRace(t *testing.T) {
	ctx := context.Background()
	a := newArbiter(t, &fakeRemote{}, &fakeDTVKit{})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := source.All()[w]
			for i := 0; i < 25; i++ {
				_, _ = a.CheckSourceStatus(ctx, id, i%2 == 0)
				_, _ = a.Start(ctx, id)
				_, _ = a.NextWaiting(ctx, true)
				_, _ = a.Stop(ctx, id)
			}
		}(w)
	}
	wg.Wait()

	snap := snapshot(t, a)
	assert.False(t, snap.Active)
}
