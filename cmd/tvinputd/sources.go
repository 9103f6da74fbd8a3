// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/tvinput"
)

type sourceLine struct {
	ID     source.ID `json:"id"`
	Number int32     `json:"number"`
}

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Connect once and list the supported input sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log.Configure(log.Config{Level: "warn", Output: cmd.ErrOrStderr(), Service: "tvinputd"})

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ids, err := querySources(ctx, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				lines := make([]sourceLine, 0, len(ids))
				for _, id := range ids {
					lines = append(lines, sourceLine{ID: id, Number: int32(id)})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(lines)
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%-12s %d\n", id, int32(id))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "give up when the platform service is not reachable in time")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// querySources runs a short-lived coordinator without the DTV-kit probe and
// without touching arbitration state.
func querySources(ctx context.Context, cfg config.AppConfig) ([]source.ID, error) {
	cfg.DTVKit.Enabled = false
	coord := tvinput.New(tvinput.Options{Config: cfg})
	defer func() { _ = coord.Close(context.WithoutCancel(ctx)) }()

	if err := coord.Connect(ctx); err != nil {
		return nil, err
	}
	return coord.GetSupportedSources(ctx)
}
