// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvserver

import "fmt"

// SignalInfo describes the signal on the current input.
type SignalInfo struct {
	Fmt       int32 `json:"fmt"`
	TransFmt  int32 `json:"transFmt"`
	Status    int32 `json:"status"`
	FrameRate int32 `json:"frameRate"`
}

// Ints encodes the info in wire order.
func (s SignalInfo) Ints() []int32 {
	return []int32{s.Fmt, s.TransFmt, s.Status, s.FrameRate}
}

func decodeSignalInfo(v []int32) (SignalInfo, error) {
	if len(v) < 4 {
		return SignalInfo{}, fmt.Errorf("%w: signal info has %d fields", ErrShortReply, len(v))
	}
	return SignalInfo{Fmt: v[0], TransFmt: v[1], Status: v[2], FrameRate: v[3]}, nil
}

// FormatInfo describes the HDMI input timing.
type FormatInfo struct {
	Width     int32 `json:"width"`
	Height    int32 `json:"height"`
	FPS       int32 `json:"fps"`
	Interlace int32 `json:"interlace"`
}

// Ints encodes the info in wire order.
func (f FormatInfo) Ints() []int32 {
	return []int32{f.Width, f.Height, f.FPS, f.Interlace}
}

func decodeFormatInfo(v []int32) (FormatInfo, error) {
	if len(v) < 4 {
		return FormatInfo{}, fmt.Errorf("%w: format info has %d fields", ErrShortReply, len(v))
	}
	return FormatInfo{Width: v[0], Height: v[1], FPS: v[2], Interlace: v[3]}, nil
}

// VdecState is the basic video decoder status.
type VdecState struct {
	DecodeTimeCost  int32 `json:"decodeTimeCost"`
	FrameWidth      int32 `json:"frameWidth"`
	FrameHeight     int32 `json:"frameHeight"`
	FrameRate       int32 `json:"frameRate"`
	ErrorCount      int32 `json:"errorCount"`
	FrameCount      int32 `json:"frameCount"`
	ErrorFrameCount int32 `json:"errorFrameCount"`
	DropFrameCount  int32 `json:"dropFrameCount"`
	DoubleWriteMode int32 `json:"doubleWriteMode"`
}

// Ints encodes the state in wire order.
func (v VdecState) Ints() []int32 {
	return []int32{
		v.DecodeTimeCost, v.FrameWidth, v.FrameHeight, v.FrameRate,
		v.ErrorCount, v.FrameCount, v.ErrorFrameCount, v.DropFrameCount,
		v.DoubleWriteMode,
	}
}

func decodeVdecState(v []int32) (VdecState, error) {
	if len(v) < 9 {
		return VdecState{}, fmt.Errorf("%w: vdec state has %d fields", ErrShortReply, len(v))
	}
	return VdecState{
		DecodeTimeCost:  v[0],
		FrameWidth:      v[1],
		FrameHeight:     v[2],
		FrameRate:       v[3],
		ErrorCount:      v[4],
		FrameCount:      v[5],
		ErrorFrameCount: v[6],
		DropFrameCount:  v[7],
		DoubleWriteMode: v[8],
	}, nil
}
