package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/vitals/internal/config"
	"github.com/Dicklesworthstone/vitals/internal/engine"
	"github.com/Dicklesworthstone/vitals/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	flags   config.Config
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{flags: config.Default()}
	root := &cobra.Command{
		Use:               "vitals",
		Short:             "Live system telemetry: CPU, memory, disk, GPU, network, processes and weather",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              a.runTUI,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", defaultConfigPath(), "YAML configuration file")
	a.flags.BindFlags(root.PersistentFlags())

	root.AddCommand(newSnapshotCmd(a), newServeCmd(a))
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vitals", "config.yaml")
}

// load layers file and environment under the flags the user actually set.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Override(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) runTUI(cmd *cobra.Command, _ []string) error {
	out := io.Discard
	if a.cfg.LogFile != "" {
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger, err := newLogger(out, a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	driver, err := engine.New(a.cfg, engine.SystemSources(a.cfg), logger)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = driver.Run(ctx)
	}()

	err = ui.RunTUI(driver, 0, a.cfg.Weather.CityID)
	stop()
	<-done
	return err
}

// newLogger builds the process logger and installs it as the default.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	log.SetOutput(w)
	return logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
