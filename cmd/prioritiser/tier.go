package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/csvio"
	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/kafka"
	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/pipeline"
)

func newTierCmd() *cobra.Command {
	var sourcePath, enrichmentPath, outPath string

	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Tier a WPdx extract using a precomputed enrichment table",
		Long: `Joins a precomputed enrichment table onto the WPdx extract by
wpdx_id, applies the tier cascade, and writes the tiered output. Needs no
API credentials, so a reviewed enrichment table can be re-tiered under
different thresholds at no cost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			reader := csvio.NewReader(a.cfg.Tiering.Thresholds().CurrentYear, a.metrics, a.logger)

			source := pipeline.SourceFunc(func(context.Context) ([]domain.WaterpointRecord, error) {
				return reader.ReadWaterpointsFile(sourcePath)
			})
			enricher := pipeline.EnricherFunc(func(context.Context, []domain.WaterpointRecord) ([]domain.EnrichmentResult, error) {
				return reader.ReadEnrichmentsFile(enrichmentPath)
			})

			sinks, closeSinks := a.newSinks(outPath)
			defer closeSinks()

			p := pipeline.New(source, enricher, sinks, a.cfg.Tiering.Thresholds(), a.logger, a.metrics)
			_, err = p.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&sourcePath, "source", "", "WPdx extract CSV")
	cmd.Flags().StringVar(&enrichmentPath, "enrichment", "", "enrichment table CSV")
	cmd.Flags().StringVar(&outPath, "out", "tiered.csv", "output tiered CSV")
	for _, flag := range []string{"source", "enrichment"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("mark flag required: %v", err))
		}
	}
	return cmd
}

// newSinks builds the tiered-record sinks: the output CSV, plus Kafka
// when enabled. The returned closer flushes the Kafka producer.
func (a *app) newSinks(outPath string) ([]pipeline.TieredSink, func()) {
	sinks := []pipeline.TieredSink{
		pipeline.SinkFunc(func(_ context.Context, records []domain.TieredRecord) error {
			if err := csvio.WriteTieredFile(outPath, records); err != nil {
				return err
			}
			a.logger.Info("tiered table written", "path", outPath, "rows", len(records))
			return nil
		}),
	}

	closer := func() {}
	if a.cfg.Kafka.Enabled {
		writer := kafka.NewWriter(a.cfg.Kafka, a.logger)
		sinks = append(sinks, pipeline.SinkFunc(writer.WriteTiered))
		closer = func() {
			if err := writer.Close(); err != nil {
				a.logger.Warn("closing kafka writer", "error", err)
			}
		}
		a.logger.Info("kafka sink enabled", "topic", a.cfg.Kafka.Topic)
	}
	return sinks, closer
}
