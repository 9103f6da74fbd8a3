// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command tvinputd runs the TV input coordinator.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/version"
)

const envConfigPath = "TVINPUT_CONFIG"

type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "tvinputd",
		Short:        "TV input source coordinator",
		Version:      version.String(),
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(envConfigPath),
		"path to YAML configuration file (env "+envConfigPath+")")

	cmd.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newSourcesCmd(opts),
	)
	return cmd
}

// load resolves the configuration with precedence env > file > defaults.
func (o *rootOptions) load() (config.AppConfig, *config.Loader, error) {
	loader := config.NewLoader(o.configPath, version.Version)
	cfg, err := loader.Load()
	return cfg, loader, err
}
