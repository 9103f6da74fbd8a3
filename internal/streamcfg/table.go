// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package streamcfg holds the per-device stream configuration table and
// tracks which streams are open.
package streamcfg

import (
	"sort"
	"sync"

	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
)

// Type is the kind of a stream.
type Type int32

const (
	TypeIndependentVideoSource Type = 1
	// TypeBufferProducer streams are no longer supported and never listed.
	TypeBufferProducer Type = 2
)

// Config describes one stream of a device.
type Config struct {
	StreamID  int32 `json:"streamId"`
	Type      Type  `json:"type"`
	MaxWidth  int32 `json:"maxWidth"`
	MaxHeight int32 `json:"maxHeight"`
}

// MessageType is a TV message stream carried alongside video.
type MessageType int32

const (
	MessageWatermark     MessageType = 1
	MessageClosedCaption MessageType = 2
	MessageOther         MessageType = 1000
)

type streamKey struct {
	device source.ID
	stream int32
}

// Table is safe for concurrent use.
type Table struct {
	mu         sync.RWMutex
	configs    map[source.ID]map[int32]Config
	open       map[streamKey]int64
	nextHandle int64
	messages   map[streamKey]map[MessageType]bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		configs:  make(map[source.ID]map[int32]Config),
		open:     make(map[streamKey]int64),
		messages: make(map[streamKey]map[MessageType]bool),
	}
}

// Set replaces the stream configurations of device.
func (t *Table) Set(device source.ID, cfgs ...Config) {
	m := make(map[int32]Config, len(cfgs))
	for _, c := range cfgs {
		m[c.StreamID] = c
	}
	t.mu.Lock()
	t.configs[device] = m
	t.mu.Unlock()
}

// Devices returns the devices with a configuration, in id order.
func (t *Table) Devices() []source.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]source.ID, 0, len(t.configs))
	for id := range t.configs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Configurations lists the supported streams of device ordered by stream
// id. Buffer producer streams are omitted.
func (t *Table) Configurations(device source.ID) ([]Config, status.Stream) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.configs[device]
	if !ok {
		return nil, status.StatusInvalidArguments
	}
	out := make([]Config, 0, len(m))
	for _, c := range m {
		if c.Type == TypeBufferProducer {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StreamID < out[j].StreamID })
	return out, status.StatusOK
}

// OpenStream opens a stream and returns its sideband handle. A device
// carries at most one open stream.
func (t *Table) OpenStream(device source.ID, streamID int32) (int64, status.Stream) {
	t.mu.Lock()
	defer t.mu.Unlock()

	code, supported := t.openLocked(device, streamID)
	if !code.IsOK() {
		return 0, status.FromErrno(code)
	}
	if !supported {
		return 0, status.StatusUnknown
	}
	t.nextHandle++
	t.open[streamKey{device, streamID}] = t.nextHandle
	return t.nextHandle, status.StatusOK
}

func (t *Table) openLocked(device source.ID, streamID int32) (status.Code, bool) {
	cfg, ok := t.configs[device][streamID]
	if !ok {
		return status.InvalidArg, false
	}
	if _, ok := t.open[streamKey{device, streamID}]; ok {
		return status.AlreadyExists, false
	}
	for k := range t.open {
		if k.device == device {
			return status.Busy, false
		}
	}
	return status.OK, cfg.Type != TypeBufferProducer
}

// CloseStream closes an open stream.
func (t *Table) CloseStream(device source.ID, streamID int32) status.Stream {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := streamKey{device, streamID}
	if _, ok := t.configs[device][streamID]; !ok {
		return status.FromErrno(status.InvalidArg)
	}
	if _, ok := t.open[k]; !ok {
		return status.FromErrno(status.InvalidArg)
	}
	delete(t.open, k)
	return status.StatusOK
}

// SetTvMessageEnabled toggles a TV message stream. Unknown devices are
// rejected.
func (t *Table) SetTvMessageEnabled(device source.ID, streamID int32, typ MessageType, enabled bool) status.Stream {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.configs[device]; !ok {
		return status.StatusInvalidArguments
	}
	k := streamKey{device, streamID}
	if t.messages[k] == nil {
		t.messages[k] = make(map[MessageType]bool)
	}
	t.messages[k][typ] = enabled
	return status.StatusOK
}

// TvMessageEnabled reports whether a TV message stream is enabled.
func (t *Table) TvMessageEnabled(device source.ID, streamID int32, typ MessageType) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messages[streamKey{device, streamID}][typ]
}

// DefaultConfig returns the single video stream a source exposes.
func DefaultConfig(id source.ID) Config {
	cfg := Config{StreamID: 1, Type: TypeIndependentVideoSource}
	switch {
	case id.IsHDMI():
		cfg.MaxWidth, cfg.MaxHeight = 3840, 2160
	case id == source.AV1, id == source.AV2, id == source.SVIDEO:
		cfg.MaxWidth, cfg.MaxHeight = 720, 576
	default:
		cfg.MaxWidth, cfg.MaxHeight = 1920, 1080
	}
	return cfg
}
