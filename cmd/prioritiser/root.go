// Command prioritiser turns a WPdx waterpoint extract into a tiered
// pre-monsoon priority list: enrich with terrain elevation and a flood
// vulnerability judgment, then apply the tier cascade and write the
// auditable output table.
package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/claude"
	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/opentopo"
	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/sqlitecache"
	"github.com/floodwatch/waterpoint-prioritiser/internal/config"
	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/enrich"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prioritiser",
		Short:         "Flood-season waterpoint prioritisation for northern Bangladesh",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEnrichCmd())
	root.AddCommand(newTierCmd())
	root.AddCommand(newRunCmd())
	return root
}

// app bundles what every command needs after configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg.Log.Level, cfg.Log.Format),
		metrics: observability.NewMetrics(),
	}, nil
}

// newCollector assembles the live enrichment collector. The returned
// cleanup closes the persistent cache; it is non-nil even when the cache
// is disabled.
func (a *app) newCollector() (*enrich.Collector, func(), error) {
	if err := a.cfg.ValidateEnrichment(); err != nil {
		return nil, nil, err
	}

	var elevation domain.ElevationProvider
	if a.cfg.Elevation.Enabled {
		client := opentopo.NewClient(
			a.cfg.Elevation.BaseURL,
			a.cfg.Elevation.Dataset,
			a.cfg.Elevation.Timeout(),
			a.metrics,
			a.logger,
		)
		elevation = opentopo.NewCachedProvider(client, a.cfg.Elevation.CacheSize, a.metrics)
	} else {
		a.logger.Info("elevation lookups disabled")
	}

	classifier := claude.NewClassifier(
		a.cfg.Anthropic.Key,
		a.cfg.Anthropic.Model,
		a.cfg.Anthropic.MaxTokens,
		a.metrics,
		a.logger,
	)

	cleanup := func() {}
	var cache enrich.ResultCache
	if a.cfg.Enrich.CachePath != "" {
		store, err := sqlitecache.Open(a.cfg.Enrich.CachePath)
		if err != nil {
			return nil, nil, err
		}
		cache = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("closing enrichment cache", "error", err)
			}
		}
		a.logger.Info("persistent enrichment cache enabled", "path", a.cfg.Enrich.CachePath)
	}

	collector := enrich.NewCollector(enrich.Options{
		Elevation:    elevation,
		Classifier:   classifier,
		Cache:        cache,
		Concurrency:  a.cfg.Enrich.Concurrency,
		ElevationRPS: a.cfg.Elevation.RatePerSec,
		ClassifyRPS:  a.cfg.Anthropic.RatePerSec,
	}, a.metrics, a.logger)

	return collector, cleanup, nil
}
