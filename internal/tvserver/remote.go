// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvserver

import (
	"context"
	"fmt"

	"github.com/ManuGH/tvinput/internal/status"
)

// Caller performs a synchronous remote operation. *Client implements it, as
// does the connection manager that supervises clients.
type Caller interface {
	Call(ctx context.Context, op string, args Args) (Reply, error)
}

// Remote exposes the platform service operations with typed arguments.
// Every method returns the service's result code and, separately, any
// transport or service error.
type Remote struct {
	c Caller
}

// NewRemote wraps c.
func NewRemote(c Caller) *Remote {
	return &Remote{c: c}
}

func (r *Remote) code(ctx context.Context, op string, args Args) (status.Code, error) {
	reply, err := r.c.Call(ctx, op, args)
	return reply.Result, err
}

func (r *Remote) str(ctx context.Context, op string, args Args) (string, error) {
	reply, err := r.c.Call(ctx, op, args)
	if err != nil {
		return "", err
	}
	return reply.String(), nil
}

func (r *Remote) StartTv(ctx context.Context) (status.Code, error) {
	return r.code(ctx, OpStartTv, Args{})
}

func (r *Remote) StopTv(ctx context.Context) (status.Code, error) {
	return r.code(ctx, OpStopTv, Args{})
}

func (r *Remote) SetTunnelID(ctx context.Context, tunnelID int32) (status.Code, error) {
	return r.code(ctx, OpSetTunnelID, Ints(tunnelID))
}

func (r *Remote) SwitchInputSrc(ctx context.Context, src int32) (status.Code, error) {
	return r.code(ctx, OpSwitchInputSrc, Ints(src))
}

func (r *Remote) GetInputSrcConnectStatus(ctx context.Context, src int32) (status.Code, error) {
	return r.code(ctx, OpGetInputSrcConnectStatus, Ints(src))
}

// GetCurrentInputSrc returns the source id the service reports as current.
func (r *Remote) GetCurrentInputSrc(ctx context.Context) (int32, error) {
	reply, err := r.c.Call(ctx, OpGetCurrentInputSrc, Args{})
	return int32(reply.Result), err
}

func (r *Remote) GetHdmiAvHotplugStatus(ctx context.Context) (status.Code, error) {
	return r.code(ctx, OpGetHdmiAvHotplugStatus, Args{})
}

// GetSupportInputDevices returns the raw comma-separated device list.
func (r *Remote) GetSupportInputDevices(ctx context.Context) (string, error) {
	return r.str(ctx, OpGetSupportInputDevices, Args{})
}

func (r *Remote) GetHdmiPorts(ctx context.Context, src int32) (int32, error) {
	reply, err := r.c.Call(ctx, OpGetHdmiPorts, Ints(src))
	return int32(reply.Result), err
}

func (r *Remote) GetCurSignalInfo(ctx context.Context) (SignalInfo, error) {
	reply, err := r.c.Call(ctx, OpGetCurSignalInfo, Args{})
	if err != nil {
		return SignalInfo{}, err
	}
	return decodeSignalInfo(reply.Ints)
}

func (r *Remote) SetMiscCfg(ctx context.Context, key, val string) (status.Code, error) {
	return r.code(ctx, OpSetMiscCfg, Strings(key, val))
}

func (r *Remote) GetMiscCfg(ctx context.Context, key, def string) (string, error) {
	return r.str(ctx, OpGetMiscCfg, Strings(key, def))
}

func (r *Remote) LoadEdidData(ctx context.Context, needBlackScreen, dolbyVision int32) (status.Code, error) {
	return r.code(ctx, OpLoadEdidData, Ints(needBlackScreen, dolbyVision))
}

func (r *Remote) UpdateEdidData(ctx context.Context, src int32, edid string) (status.Code, error) {
	return r.code(ctx, OpUpdateEdidData, Args{Ints: []int32{src}, Strings: []string{edid}})
}

func (r *Remote) SetHdmiEdidVersion(ctx context.Context, port, version int32) (status.Code, error) {
	return r.code(ctx, OpSetHdmiEdidVersion, Ints(port, version))
}

func (r *Remote) GetHdmiEdidVersion(ctx context.Context, port int32) (int32, error) {
	reply, err := r.c.Call(ctx, OpGetHdmiEdidVersion, Ints(port))
	return int32(reply.Result), err
}

func (r *Remote) SaveHdmiEdidVersion(ctx context.Context, port, version int32) (status.Code, error) {
	return r.code(ctx, OpSaveHdmiEdidVersion, Ints(port, version))
}

func (r *Remote) SetHdmiColorRangeMode(ctx context.Context, mode int32) (status.Code, error) {
	return r.code(ctx, OpSetHdmiColorRangeMode, Ints(mode))
}

func (r *Remote) GetHdmiColorRangeMode(ctx context.Context) (int32, error) {
	reply, err := r.c.Call(ctx, OpGetHdmiColorRangeMode, Args{})
	return int32(reply.Result), err
}

func (r *Remote) GetHdmiFormatInfo(ctx context.Context) (FormatInfo, error) {
	reply, err := r.c.Call(ctx, OpGetHdmiFormatInfo, Args{})
	if err != nil {
		return FormatInfo{}, err
	}
	return decodeFormatInfo(reply.Ints)
}

func (r *Remote) HandleGPIO(ctx context.Context, key string, isOut, edge int32) (status.Code, error) {
	return r.code(ctx, OpHandleGPIO, Args{Ints: []int32{isOut, edge}, Strings: []string{key}})
}

func (r *Remote) VdinUpdateForPQ(ctx context.Context, gameStatus, pcStatus, autoSwitch int32) (status.Code, error) {
	return r.code(ctx, OpVdinUpdateForPQ, Ints(gameStatus, pcStatus, autoSwitch))
}

func (r *Remote) SetWssStatus(ctx context.Context, st int32) (status.Code, error) {
	return r.code(ctx, OpSetWssStatus, Ints(st))
}

func (r *Remote) SetDeviceIDForCec(ctx context.Context, deviceID int32) (status.Code, error) {
	return r.code(ctx, OpSetDeviceIDForCec, Ints(deviceID))
}

func (r *Remote) SetScreenColorForSignalChange(ctx context.Context, color, save int32) (status.Code, error) {
	return r.code(ctx, OpSetScreenColorForSignalChange, Ints(color, save))
}

func (r *Remote) GetScreenColorForSignalChange(ctx context.Context) (int32, error) {
	reply, err := r.c.Call(ctx, OpGetScreenColorForSignalChange, Args{})
	return int32(reply.Result), err
}

func (r *Remote) DtvGetSignalSNR(ctx context.Context) (int32, error) {
	reply, err := r.c.Call(ctx, OpDtvGetSignalSNR, Args{})
	return int32(reply.Result), err
}

func (r *Remote) GetBasicVdecStatusInfo(ctx context.Context, vdecID int32) (VdecState, error) {
	reply, err := r.c.Call(ctx, OpGetBasicVdecStatusInfo, Ints(vdecID))
	if err != nil {
		return VdecState{}, err
	}
	return decodeVdecState(reply.Ints)
}

func (r *Remote) StartTvInPIP(ctx context.Context, src int32) (status.Code, error) {
	return r.code(ctx, OpStartTvInPIP, Ints(src))
}

func (r *Remote) StopTvInPIP(ctx context.Context) (status.Code, error) {
	return r.code(ctx, OpStopTvInPIP, Args{})
}

// IsSupportPIP reports the raw PIP capability flag; 1 means supported.
func (r *Remote) IsSupportPIP(ctx context.Context) (int32, error) {
	reply, err := r.c.Call(ctx, OpIsSupportPIP, Args{})
	return int32(reply.Result), err
}

// Request invokes a DTV-kit session method with a JSON payload and returns
// the JSON response.
func (r *Remote) Request(ctx context.Context, method, payload string) (string, error) {
	reply, err := r.c.Call(ctx, OpRequest, Strings(method, payload))
	if err != nil {
		return "", fmt.Errorf("dtvkit %s: %w", method, err)
	}
	return reply.String(), nil
}
