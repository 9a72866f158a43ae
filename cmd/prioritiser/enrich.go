package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/floodwatch/waterpoint-prioritiser/internal/adapter/csvio"
)

func newEnrichCmd() *cobra.Command {
	var sourcePath, outPath string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich a WPdx extract and write the enrichment table",
		Long: `Reads the WPdx extract, obtains terrain elevation and a flood
vulnerability judgment for each waterpoint, and writes the enrichment
table consumed by the tier command. Provider failures degrade to absent
signals on the affected rows; the batch itself does not fail.`,
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
			records, err := reader.ReadWaterpointsFile(sourcePath)
			if err != nil {
				return err
			}
			a.logger.Info("source read", "records", len(records))

			results, err := collector.Collect(cmd.Context(), records)
			if err != nil {
				return err
			}

			if err := csvio.WriteEnrichmentsFile(outPath, results); err != nil {
				return err
			}
			a.logger.Info("enrichment table written", "path", outPath, "rows", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourcePath, "source", "", "WPdx extract CSV")
	cmd.Flags().StringVar(&outPath, "out", "enrichment.csv", "output enrichment CSV")
	if err := cmd.MarkFlagRequired("source"); err != nil {
		panic(fmt.Sprintf("mark flag required: %v", err))
	}
	return cmd
}
