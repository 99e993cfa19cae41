package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/vitals/internal/engine"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print one snapshot of every domain as JSON and exit",
		Long: `Samples every domain twice, settle apart, so CPU usage and network
rates cover a real interval, then prints the snapshot as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(os.Stderr, a.cfg.LogLevel, a.cfg.LogFormat)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			driver, err := engine.New(a.cfg, engine.SystemSources(a.cfg), logger)
			if err != nil {
				return err
			}
			driver.Once(ctx)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(settle):
			}
			driver.Once(ctx)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(driver.Snapshot())
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", time.Second, "delay between the two samples")
	return cmd
}
