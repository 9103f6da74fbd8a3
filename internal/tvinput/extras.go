// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvinput

import (
	"context"

	"github.com/ManuGH/tvinput/internal/events"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/streamcfg"
)

// SourceConnectStatus returns the cable state of src. DTV-kit sources have
// no cable and report 0 without a remote call.
func (c *Coordinator) SourceConnectStatus(ctx context.Context, src source.ID) (status.Code, error) {
	if src.IsDTVKit() {
		return 0, nil
	}
	return c.remote.GetInputSrcConnectStatus(ctx, int32(src))
}

// CurrentSource returns the current input. A DTV-kit current source is
// answered locally; the platform does not know about it.
func (c *Coordinator) CurrentSource(ctx context.Context) (source.ID, error) {
	snap, err := c.arbiter.Snapshot(ctx)
	if err != nil {
		return source.Invalid, err
	}
	if snap.Current.IsDTVKit() {
		return snap.Current, nil
	}
	id, err := c.remote.GetCurrentInputSrc(ctx)
	if err != nil {
		return source.Invalid, err
	}
	return source.ID(id), nil
}

// HotplugDetect returns the raw HDMI/AV hotplug detection state.
func (c *Coordinator) HotplugDetect(ctx context.Context) (status.Code, error) {
	return c.remote.GetHdmiAvHotplugStatus(ctx)
}

// HdmiPort maps an HDMI source to its physical port number.
func (c *Coordinator) HdmiPort(ctx context.Context, src source.ID) (int32, error) {
	return c.remote.GetHdmiPorts(ctx, int32(src))
}

// IsHdmiPIP reports whether src can be shown picture-in-picture.
func (c *Coordinator) IsHdmiPIP(ctx context.Context, src source.ID) (bool, error) {
	if src <= source.YPBPR2 || src >= source.HDMI4 {
		return false, nil
	}
	flag, err := c.remote.IsSupportPIP(ctx)
	if err != nil {
		return false, err
	}
	return flag == 1, nil
}

// StartPIP starts src in the picture-in-picture window.
func (c *Coordinator) StartPIP(ctx context.Context, src source.ID) (status.Code, error) {
	return c.remote.StartTvInPIP(ctx, int32(src))
}

// StopPIP stops the picture-in-picture window.
func (c *Coordinator) StopPIP(ctx context.Context) (status.Code, error) {
	return c.remote.StopTvInPIP(ctx)
}

// IsMultiDemux reports the demux driver flavour from sysfs.
func (c *Coordinator) IsMultiDemux() bool { return c.platform.IsMultiDemux() }

// WriteSurfaceType tells the post-processor which layer feeds it.
func (c *Coordinator) WriteSurfaceType(t SurfaceType) error {
	return c.platform.WriteSurfaceType(t)
}

// DeviceEvent turns a source-connect notification into a classified device
// event and keeps the stream table in step with it: a newly cabled source
// gets its default configuration.
func (c *Coordinator) DeviceEvent(ev events.Event) (events.DeviceEvent, bool) {
	raw, ok := events.FromSourceConnect(ev)
	if !ok {
		return events.DeviceEvent{}, false
	}
	out, ok := events.Classify(raw)
	if !ok {
		return events.DeviceEvent{}, false
	}
	if out.Device.CableStatus == events.CableConnected {
		if _, st := c.streams.Configurations(ev.Source); st != status.StatusOK {
			c.streams.Set(ev.Source, streamcfg.DefaultConfig(ev.Source))
		}
	}
	return out, true
}
