// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tvinput/internal/events"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func serve(t *testing.T, srv *tvserver.Server, name string) *tvserver.Client {
	t.Helper()
	dir := tvserver.Directory{Root: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, dir.Path(name)) }()

	var path string
	require.Eventually(t, func() bool {
		p, err := dir.Lookup(name)
		path = p
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	c, err := tvserver.Dial(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-done
	})
	return c
}

func TestPlatformDefaults(t *testing.T) {
	p := NewPlatform(zerolog.Nop())
	r := tvserver.NewRemote(serve(t, p.Server(), "tvserver"))
	ctx := context.Background()

	raw, err := r.GetSupportInputDevices(ctx)
	require.NoError(t, err)
	ids, unknown, err := source.ParseDeviceList(raw)
	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, []source.ID{source.TV, source.AV1, source.HDMI1, source.HDMI2, source.DTVKit, source.DTVKitPIP}, ids)

	code, err := r.GetInputSrcConnectStatus(ctx, int32(source.HDMI1))
	require.NoError(t, err)
	assert.Equal(t, status.Code(1), code)

	code, err = r.GetInputSrcConnectStatus(ctx, int32(source.HDMI2))
	require.NoError(t, err)
	assert.Equal(t, status.Code(0), code)

	port, err := r.GetHdmiPorts(ctx, int32(source.HDMI2))
	require.NoError(t, err)
	assert.Equal(t, int32(2), port)

	info, err := r.GetHdmiFormatInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1920), info.Width)
}

func TestPlatformStartSwitchStop(t *testing.T) {
	p := NewPlatform(zerolog.Nop())
	r := tvserver.NewRemote(serve(t, p.Server(), "tvserver"))
	ctx := context.Background()

	code, err := r.SetTunnelID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)

	code, err = r.StartTv(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	assert.True(t, p.Running())
	assert.Equal(t, int32(7), p.TunnelID())

	code, err = r.StartTv(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.Busy, code, "second start while running")

	code, err = r.SwitchInputSrc(ctx, int32(source.HDMI2))
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	cur, err := r.GetCurrentInputSrc(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(source.HDMI2), cur)

	code, err = r.SwitchInputSrc(ctx, int32(source.VGA))
	require.NoError(t, err)
	assert.Equal(t, status.NoDevice, code, "VGA is not attached")

	code, err = r.StopTv(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	assert.False(t, p.Running())

	assert.Equal(t, []string{
		tvserver.OpSetTunnelID,
		tvserver.OpStartTv,
		tvserver.OpStartTv,
		tvserver.OpSwitchInputSrc,
		tvserver.OpGetCurrentInputSrc,
		tvserver.OpSwitchInputSrc,
		tvserver.OpStopTv,
	}, p.Calls())
}

func TestPlatformFailNext(t *testing.T) {
	p := NewPlatform(zerolog.Nop())
	r := tvserver.NewRemote(serve(t, p.Server(), "tvserver"))
	ctx := context.Background()

	p.FailNext(tvserver.OpStartTv, status.IOError)
	code, err := r.StartTv(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.IOError, code)
	assert.False(t, p.Running())

	code, err = r.StartTv(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code, "failure is injected once")
}

func TestPlatformMiscAndEdid(t *testing.T) {
	p := NewPlatform(zerolog.Nop())
	r := tvserver.NewRemote(serve(t, p.Server(), "tvserver"))
	ctx := context.Background()

	v, err := r.GetMiscCfg(ctx, "tv.mode", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", v)

	_, err = r.SetMiscCfg(ctx, "tv.mode", "game")
	require.NoError(t, err)
	v, err = r.GetMiscCfg(ctx, "tv.mode", "default")
	require.NoError(t, err)
	assert.Equal(t, "game", v)

	_, err = r.SetHdmiEdidVersion(ctx, 1, 2)
	require.NoError(t, err)
	ver, err := r.GetHdmiEdidVersion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ver)
}

func TestPlatformPIP(t *testing.T) {
	p := NewPlatform(zerolog.Nop())
	r := tvserver.NewRemote(serve(t, p.Server(), "tvserver"))
	ctx := context.Background()

	flag, err := r.IsSupportPIP(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(0), flag)
	code, err := r.StartTvInPIP(ctx, int32(source.HDMI1))
	require.NoError(t, err)
	assert.Equal(t, status.NotImplemented, code)

	p.SetPIPSupported(true)
	code, err = r.StartTvInPIP(ctx, int32(source.HDMI1))
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
}

func TestPlatformHotplugBroadcast(t *testing.T) {
	p := NewPlatform(zerolog.Nop())
	c := serve(t, p.Server(), "tvserver")

	got := make(chan tvserver.Event, 1)
	require.NoError(t, c.Subscribe(context.Background(), "hal", func(ev tvserver.Event) { got <- ev }))
	require.Eventually(t, func() bool { return len(p.Server().Subscribers()) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, p.Hotplug(source.HDMI2, true))

	select {
	case ev := <-got:
		assert.Equal(t, events.MsgSourceConnect, ev.MsgType)
		assert.Equal(t, []int32{int32(source.HDMI2), 1}, ev.Ints)
	case <-time.After(2 * time.Second):
		t.Fatal("hotplug event not delivered")
	}

	code, err := tvserver.NewRemote(c).GetInputSrcConnectStatus(context.Background(), int32(source.HDMI2))
	require.NoError(t, err)
	assert.Equal(t, status.Code(1), code)
}

func TestDTVKitRequests(t *testing.T) {
	d := NewDTVKit(zerolog.Nop())
	r := tvserver.NewRemote(serve(t, d.Server(), "dtvkit"))
	ctx := context.Background()

	resp, err := r.Request(ctx, tvserver.DTVKitRequestDevice, `[""]`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"Dvb.requestDtvDevice","holding":"true"}`, resp)
	assert.True(t, d.Holding())

	_, err = r.Request(ctx, tvserver.DTVKitReleaseDevice, `[""]`)
	require.NoError(t, err)
	assert.False(t, d.Holding())
	assert.Equal(t, []string{tvserver.DTVKitRequestDevice, tvserver.DTVKitReleaseDevice}, d.Methods())
}
