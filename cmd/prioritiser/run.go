package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/csvio"
	monitor "github.com/floodwatch/waterpoint-prioritiser/internal/adapter/http"
	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var sourcePath, outPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enrich and tier a WPdx extract in one pass",
		Long: `Runs the full batch: read the WPdx extract, enrich each waterpoint
live, apply the tier cascade, and write the tiered output. When
monitor.addr is configured, /healthz, /readyz, and /metrics are served
while the batch runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			collector, cleanup, err := a.newCollector()
			if err != nil {
				return err
			}
			defer cleanup()

			reader := csvio.NewReader(a.cfg.Tiering.Thresholds().CurrentYear, a.metrics, a.logger)
			source := pipeline.SourceFunc(func(context.Context) ([]domain.WaterpointRecord, error) {
				return reader.ReadWaterpointsFile(sourcePath)
			})

			sinks, closeSinks := a.newSinks(outPath)
			defer closeSinks()

			p := pipeline.New(source, collector, sinks, a.cfg.Tiering.Thresholds(), a.logger, a.metrics)

			var srv *monitor.Server
			if addr := a.cfg.Monitor.Addr; addr != "" {
				srv = monitor.NewServer(addr, p, a.logger)
				go func() {
					if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("monitor server error", "error", err)
					}
				}()
			}

			_, runErr := p.Run(cmd.Context())

			if srv != nil {
				timeout := time.Duration(a.cfg.Monitor.ShutdownTimeout) * time.Second
				shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("monitor server shutdown error", "error", err)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&sourcePath, "source", "", "WPdx extract CSV")
	cmd.Flags().StringVar(&outPath, "out", "tiered.csv", "output tiered CSV")
	if err := cmd.MarkFlagRequired("source"); err != nil {
		panic(fmt.Sprintf("mark flag required: %v", err))
	}
	return cmd
}
