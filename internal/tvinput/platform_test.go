// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvinput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMultiDemux(t *testing.T) {
	p := Platform{Root: t.TempDir()}
	assert.True(t, p.IsMultiDemux(), "legacy node absent")

	node := filepath.Join(p.Root, demuxSourcePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(node), 0o755))
	require.NoError(t, os.WriteFile(node, []byte("ts0\n"), 0o644))
	assert.False(t, p.IsMultiDemux())
}

func TestWriteSurfaceType(t *testing.T) {
	p := Platform{Root: t.TempDir()}
	require.Error(t, p.WriteSurfaceType(SurfaceVdin), "node is never created")

	node := filepath.Join(p.Root, surfaceTypePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(node), 0o755))
	require.NoError(t, os.WriteFile(node, nil, 0o644))

	require.NoError(t, p.WriteSurfaceType(SurfaceVdin))
	got, err := os.ReadFile(node)
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))

	require.NoError(t, p.WriteSurfaceType(SurfaceDecoder))
	got, err = os.ReadFile(node)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}
