// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerationValues(t *testing.T) {
	assert.Equal(t, ID(19), DTVKit)
	assert.Equal(t, ID(119), DTVKitPIP)
	assert.Equal(t, ID(-1), Invalid)
	assert.Equal(t, ID(20), Max)
}

func TestValid(t *testing.T) {
	for _, id := range All() {
		assert.True(t, id.Valid(), "%s should be valid", id)
	}
	assert.False(t, Invalid.Valid())
	assert.False(t, Max.Valid())
	assert.False(t, ID(42).Valid())
}

func TestIsDTVKit(t *testing.T) {
	assert.True(t, DTVKit.IsDTVKit())
	assert.True(t, DTVKitPIP.IsDTVKit())
	assert.False(t, DTV.IsDTVKit())
	assert.False(t, HDMI1.IsDTVKit())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"HDMI1", HDMI1, false},
		{"hdmi1", HDMI1, false},
		{"5", HDMI1, false},
		{"dtvkit_pip", DTVKitPIP, false},
		{"119", DTVKitPIP, false},
		{"-1", Invalid, false},
		{"INVALID", Invalid, false},
		{"20", Invalid, true},
		{"hdmi9", Invalid, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownSource)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, id := range All() {
		got, err := Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, "SOURCE(77)", ID(77).String())
}

func TestParseDeviceList(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        []ID
		wantUnknown []int64
		wantErr     bool
	}{
		{"dtvkit synthesizes pip", "0,5,19", []ID{TV, HDMI1, DTVKit, DTVKitPIP}, nil, false},
		{"null means none", "null", []ID{}, nil, false},
		{"empty means none", "", []ID{}, nil, false},
		{"no dtvkit", "5,6,7", []ID{HDMI1, HDMI2, HDMI3}, nil, false},
		{"tolerates spaces and empty tokens", " 1, ,2 ", []ID{AV1, AV2}, nil, false},
		{"out of range ids are reported", "5,25,-1,6", []ID{HDMI1, HDMI2}, []int64{25, -1}, false},
		{"non numeric", "5,hdmi", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown, err := ParseDeviceList(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDeviceList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantUnknown, unknown)
		})
	}
}

func TestParsedDeviceListSurvivesJSON(t *testing.T) {
	ids, _, err := ParseDeviceList("0,25,5,19")
	require.NoError(t, err)

	data, err := json.Marshal(ids)
	require.NoError(t, err)
	var back []ID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ids, back)
}

func TestFormatDeviceList(t *testing.T) {
	assert.Equal(t, "null", FormatDeviceList(nil))
	assert.Equal(t, "0,5,19", FormatDeviceList([]ID{TV, HDMI1, DTVKit, DTVKitPIP}))
}

func TestAudioConnectionOf(t *testing.T) {
	tests := map[ID]AudioConnection{
		TV:        AudioTuner,
		DTVKitPIP: AudioTuner,
		AUX:       AudioAnalog,
		HDMI3:     AudioHDMI,
		SPDIF:     AudioSPDIF,
		ARC:       AudioHDMIARC,
		VGA:       AudioNone,
	}
	for id, want := range tests {
		assert.Equal(t, want, AudioConnectionOf(id), id.String())
	}
}
