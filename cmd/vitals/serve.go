package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/vitals/internal/engine"
	"github.com/Dicklesworthstone/vitals/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine headless and expose Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(os.Stderr, a.cfg.LogLevel, a.cfg.LogFormat)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			ticks := metrics.NewTicks()
			driver, err := engine.New(a.cfg, engine.SystemSources(a.cfg), logger, engine.WithObserver(ticks))
			if err != nil {
				return err
			}
			handler, err := metrics.Handler(metrics.NewCollector(driver.Snapshot), ticks)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return driver.Run(ctx) })
			g.Go(func() error {
				logger.Info("metrics endpoint listening", slog.String("addr", a.cfg.MetricsAddr))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
