// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/tvinput/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigValidateCmd(opts), newConfigDumpCmd(opts))
	return cmd
}

func newConfigValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := opts.load(); err != nil {
				return fmt.Errorf("configuration error in %s: %w", describePath(opts.configPath), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", describePath(opts.configPath))
			return nil
		},
	}
}

func newConfigDumpCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (defaults + file + env) as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return fmt.Errorf("configuration error in %s: %w", describePath(opts.configPath), err)
			}
			data, err := config.Dump(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := renameio.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file atomically instead of stdout")
	return cmd
}

func describePath(path string) string {
	if path == "" {
		return "environment configuration"
	}
	return path
}
