// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/config"
)

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Service.SocketDir = t.TempDir()
	cfg.Platform.SysfsRoot = t.TempDir()
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	bad := cfg
	bad.Service.SocketDir = filepath.Join(cfg.Service.SocketDir, "missing")
	require.Error(t, PerformStartupChecks(context.Background(), bad))

	bad = cfg
	bad.API.ListenAddr = "localhost"
	require.Error(t, PerformStartupChecks(context.Background(), bad))

	bad = cfg
	bad.Metrics.ListenAddr = ":99999"
	require.Error(t, PerformStartupChecks(context.Background(), bad))
	bad.Metrics.Enabled = false
	require.NoError(t, PerformStartupChecks(context.Background(), bad), "disabled metrics address is ignored")

	bad = cfg
	bad.Platform.SysfsRoot = filepath.Join(cfg.Platform.SysfsRoot, "missing")
	require.NoError(t, PerformStartupChecks(context.Background(), bad), "missing sysfs only warns")
}
