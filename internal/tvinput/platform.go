// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvinput

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SurfaceType is the video layer feeding the post-processor.
type SurfaceType int

const (
	SurfaceOthers  SurfaceType = 0
	SurfaceDecoder SurfaceType = 1
	SurfaceVdin    SurfaceType = 2
)

const (
	demuxSourcePath = "class/stb/demux0_source"
	surfaceTypePath = "class/video/tvin_source_type"
)

// Platform reads and writes the sysfs nodes below Root.
type Platform struct {
	Root string
}

// IsMultiDemux reports whether the platform runs the multi-instance demux
// driver, which does not expose the legacy demux0 source node.
func (p Platform) IsMultiDemux() bool {
	_, err := os.Stat(filepath.Join(p.Root, demuxSourcePath))
	return err != nil
}

// WriteSurfaceType tells the video post-processor which layer it is fed
// from. The node must already exist.
func (p Platform) WriteSurfaceType(t SurfaceType) error {
	path := filepath.Join(p.Root, surfaceTypePath)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(strconv.Itoa(int(t))); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
