// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"github.com/ManuGH/tvinput/internal/source"
)

// EventType is the kind of a device event.
type EventType int32

const (
	DeviceAvailable             EventType = 1
	DeviceUnavailable           EventType = 2
	StreamConfigurationsChanged EventType = 3
	CaptureSucceeded            EventType = 4
	CaptureFailed               EventType = 5
)

func (t EventType) String() string {
	switch t {
	case DeviceAvailable:
		return "device_available"
	case DeviceUnavailable:
		return "device_unavailable"
	case StreamConfigurationsChanged:
		return "stream_configurations_changed"
	case CaptureSucceeded:
		return "capture_succeeded"
	case CaptureFailed:
		return "capture_failed"
	}
	return "unknown"
}

// DeviceType is the physical kind of an input device.
type DeviceType int32

const (
	DeviceOther       DeviceType = 1
	DeviceTuner       DeviceType = 2
	DeviceComposite   DeviceType = 3
	DeviceSVideo      DeviceType = 4
	DeviceSCART       DeviceType = 5
	DeviceComponent   DeviceType = 6
	DeviceVGA         DeviceType = 7
	DeviceDVI         DeviceType = 8
	DeviceHDMI        DeviceType = 9
	DeviceDisplayPort DeviceType = 10
)

// CableStatus is the cable connection state of a device.
type CableStatus int32

const (
	CableUnknown      CableStatus = 0
	CableConnected    CableStatus = 1
	CableDisconnected CableStatus = 2
)

// Audio device types assigned by the classifier. Other values are passed
// through from the raw event.
const (
	AudioTypeNone      int32 = 0
	AudioTypeInDevice  int32 = 4
	AudioTypeInTVTuner int32 = 13
)

// RawDeviceEvent is a device event as produced by the platform layer.
type RawDeviceEvent struct {
	Type       EventType
	DeviceID   source.ID
	DeviceType DeviceType
	PortID     int32
	AudioType  int32

	// CableStatus is only meaningful when HasCableStatus is set.
	CableStatus    int32
	HasCableStatus bool
}

// AudioDevice describes the audio path of a device.
type AudioDevice struct {
	Type       int32                  `json:"type"`
	Connection source.AudioConnection `json:"connection"`
}

// DeviceInfo is the classified description of a device.
type DeviceInfo struct {
	DeviceID    source.ID   `json:"deviceId"`
	Type        DeviceType  `json:"type"`
	PortID      int32       `json:"portId"`
	CableStatus CableStatus `json:"cableStatus"`
	Audio       AudioDevice `json:"audio"`
}

// DeviceEvent is a classified device event.
type DeviceEvent struct {
	Type   EventType  `json:"type"`
	Device DeviceInfo `json:"device"`
}

// Classify maps a raw event to a DeviceEvent. Capture events are not
// supported and report false.
func Classify(raw RawDeviceEvent) (DeviceEvent, bool) {
	if raw.Type >= CaptureSucceeded {
		return DeviceEvent{}, false
	}

	out := DeviceEvent{
		Type: raw.Type,
		Device: DeviceInfo{
			DeviceID:    raw.DeviceID,
			Type:        raw.DeviceType,
			PortID:      raw.PortID,
			CableStatus: cableStatus(raw),
			Audio:       AudioDevice{Type: raw.AudioType},
		},
	}

	switch conn := source.AudioConnectionOf(raw.DeviceID); conn {
	case source.AudioNone:
	case source.AudioTuner:
		out.Device.Audio = AudioDevice{Type: AudioTypeInTVTuner}
	default:
		out.Device.Audio = AudioDevice{Type: AudioTypeInDevice, Connection: conn}
	}
	return out, true
}

func cableStatus(raw RawDeviceEvent) CableStatus {
	if !raw.HasCableStatus {
		return CableUnknown
	}
	if raw.Type != StreamConfigurationsChanged && raw.Type != DeviceAvailable {
		return CableUnknown
	}
	if raw.CableStatus < int32(CableUnknown) || raw.CableStatus > int32(CableDisconnected) {
		return CableUnknown
	}
	return CableStatus(raw.CableStatus)
}

// DeviceTypeOf returns the physical device kind behind a source.
func DeviceTypeOf(id source.ID) DeviceType {
	switch {
	case id == source.TV || id == source.DTV || id == source.ADTV || id.IsDTVKit():
		return DeviceTuner
	case id == source.AV1 || id == source.AV2:
		return DeviceComposite
	case id == source.YPBPR1 || id == source.YPBPR2:
		return DeviceComponent
	case id.IsHDMI():
		return DeviceHDMI
	case id == source.VGA:
		return DeviceVGA
	case id == source.SVIDEO:
		return DeviceSVideo
	}
	return DeviceOther
}

// FromSourceConnect turns a source-connect notification into the raw
// device event announcing the changed stream configuration. It reports
// false for other message types and invalid sources.
func FromSourceConnect(ev Event) (RawDeviceEvent, bool) {
	if ev.MsgType != MsgSourceConnect || !ev.Source.Valid() {
		return RawDeviceEvent{}, false
	}
	raw := RawDeviceEvent{
		Type:           StreamConfigurationsChanged,
		DeviceID:       ev.Source,
		DeviceType:     DeviceTypeOf(ev.Source),
		CableStatus:    int32(CableDisconnected),
		HasCableStatus: true,
	}
	if ev.State == 1 {
		raw.CableStatus = int32(CableConnected)
	}
	if ev.Source.IsHDMI() {
		raw.PortID = int32(ev.Source-source.HDMI1) + 1
	}
	return raw, true
}
