// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

// AudioConnection classifies how a source's audio reaches the mixer.
type AudioConnection string

const (
	AudioNone    AudioConnection = ""
	AudioTuner   AudioConnection = "tuner"
	AudioAnalog  AudioConnection = "analog"
	AudioHDMI    AudioConnection = "hdmi"
	AudioSPDIF   AudioConnection = "spdif"
	AudioHDMIARC AudioConnection = "hdmi_arc"
)

// AudioConnectionOf returns the audio path for id, or AudioNone when the
// source has no fixed mapping.
func AudioConnectionOf(id ID) AudioConnection {
	switch id {
	case TV, DTV, ADTV, DTVKit, DTVKitPIP:
		return AudioTuner
	case AV1, AV2, AUX:
		return AudioAnalog
	case HDMI1, HDMI2, HDMI3, HDMI4:
		return AudioHDMI
	case SPDIF:
		return AudioSPDIF
	case ARC:
		return AudioHDMIARC
	default:
		return AudioNone
	}
}
