// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/validate"
)

// PerformStartupChecks verifies the host before the daemon binds anything.
// The socket directory belongs to the platform service and is never created
// here; a missing sysfs root only disables the platform extras.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup")

	info, err := os.Stat(cfg.Service.SocketDir)
	if err != nil {
		return fmt.Errorf("socket directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("socket directory: %s is not a directory", cfg.Service.SocketDir)
	}

	v := validate.New()
	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}
	if err := v.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Platform.SysfsRoot); err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "startup.sysfs_missing").
			Str(log.FieldPath, cfg.Platform.SysfsRoot).
			Msg("sysfs root not accessible")
	}

	logger.Debug().
		Str(log.FieldEvent, "startup.checks_passed").
		Str(log.FieldPath, cfg.Service.SocketDir).
		Msg("startup checks passed")
	return nil
}
