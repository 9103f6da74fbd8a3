// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDeviceList is returned for malformed device lists.
var ErrInvalidDeviceList = errors.New("invalid device list")

// noDevices is what the platform service reports when nothing is attached.
const noDevices = "null"

// ParseDeviceList converts the platform service's comma-separated device list
// into source ids. DTVKitPIP is appended whenever DTVKit is present. Numbers
// outside the source enumeration are left out of ids and returned in unknown.
func ParseDeviceList(raw string) (ids []ID, unknown []int64, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == noDevices {
		return []ID{}, nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]ID, 0, len(parts)+1)
	hasDTVKit := false
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q: %v", ErrInvalidDeviceList, p, err)
		}
		id := ID(n)
		if !id.Valid() {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, id)
		if id == DTVKit {
			hasDTVKit = true
		}
	}
	if hasDTVKit {
		out = append(out, DTVKitPIP)
	}
	return out, unknown, nil
}

// FormatDeviceList is the inverse of ParseDeviceList for physical ids.
// Synthetic DTVKitPIP entries are omitted.
func FormatDeviceList(ids []ID) string {
	if len(ids) == 0 {
		return noDevices
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == DTVKitPIP {
			continue
		}
		parts = append(parts, strconv.Itoa(int(id)))
	}
	if len(parts) == 0 {
		return noDevices
	}
	return strings.Join(parts, ",")
}
