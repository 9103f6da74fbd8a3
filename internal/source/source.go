// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package source defines the closed set of TV input source identifiers.
package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a physical or virtual TV input.
type ID int32

const (
	Invalid ID = -1

	TV     ID = 0
	AV1    ID = 1
	AV2    ID = 2
	YPBPR1 ID = 3
	YPBPR2 ID = 4
	HDMI1  ID = 5
	HDMI2  ID = 6
	HDMI3  ID = 7
	HDMI4  ID = 8
	VGA    ID = 9
	MPEG   ID = 10
	DTV    ID = 11
	SVIDEO ID = 12
	IPTV   ID = 13
	Dummy  ID = 14
	SPDIF  ID = 15
	ADTV   ID = 16
	AUX    ID = 17
	ARC    ID = 18
	DTVKit ID = 19

	// Max bounds the physical enumeration; it is not a source.
	Max ID = 20

	// DTVKitPIPOffset derives the picture-in-picture id from DTVKit.
	DTVKitPIPOffset = 100
	DTVKitPIP       = DTVKit + DTVKitPIPOffset
)

// ErrUnknownSource is returned when a name or number does not map to a source.
var ErrUnknownSource = errors.New("unknown source")

var names = map[ID]string{
	Invalid:   "INVALID",
	TV:        "TV",
	AV1:       "AV1",
	AV2:       "AV2",
	YPBPR1:    "YPBPR1",
	YPBPR2:    "YPBPR2",
	HDMI1:     "HDMI1",
	HDMI2:     "HDMI2",
	HDMI3:     "HDMI3",
	HDMI4:     "HDMI4",
	VGA:       "VGA",
	MPEG:      "MPEG",
	DTV:       "DTV",
	SVIDEO:    "SVIDEO",
	IPTV:      "IPTV",
	Dummy:     "DUMMY",
	SPDIF:     "SPDIF",
	ADTV:      "ADTV",
	AUX:       "AUX",
	ARC:       "ARC",
	DTVKit:    "DTVKIT",
	DTVKitPIP: "DTVKIT_PIP",
}

var byName = func() map[string]ID {
	m := make(map[string]ID, len(names))
	for id, name := range names {
		m[name] = id
	}
	return m
}()

// All lists every valid source in enumeration order.
func All() []ID {
	out := make([]ID, 0, int(Max)+1)
	for id := TV; id < Max; id++ {
		out = append(out, id)
	}
	return append(out, DTVKitPIP)
}

// String returns the canonical upper-case name.
func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("SOURCE(%d)", int32(id))
}

// Valid reports whether id names a real source (not INVALID, not MAX).
func (id ID) Valid() bool {
	return (id >= TV && id < Max) || id == DTVKitPIP
}

// IsDTVKit reports whether id is one of the software DTV-kit variants.
func (id ID) IsDTVKit() bool {
	return id == DTVKit || id == DTVKitPIP
}

// IsHDMI reports whether id is one of the four HDMI ports.
func (id ID) IsHDMI() bool {
	return id >= HDMI1 && id <= HDMI4
}

// Parse accepts either a canonical name (case-insensitive) or a decimal id.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if id, ok := byName[strings.ToUpper(s)]; ok {
		return id, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return Invalid, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	id := ID(n)
	if !id.Valid() && id != Invalid {
		return Invalid, fmt.Errorf("%w: %d", ErrUnknownSource, n)
	}
	return id, nil
}

// MarshalText renders the canonical name.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a name or number.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
