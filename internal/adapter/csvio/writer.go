package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

// Output column orders are fixed so downstream diffs stay stable across
// runs.
var (
	enrichmentColumns = []string{
		colID, colElevation, colLabel, colRationale, colEnrStatus,
	}
	tieredColumns = []string{
		colID, colSourceType, colStatus, colDistrict, colPopulation, colYear,
		colLat, colLon,
		colElevation, colLabel, colRationale, colEnrStatus,
		"priority_tier", "tier_reason", "tier_note", "run_id", "processed_at",
	}
)

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteEnrichments writes an enrichment table consumable by
// ReadEnrichments.
func WriteEnrichments(w io.Writer, results []domain.EnrichmentResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(enrichmentColumns); err != nil {
		return fmt.Errorf("write enrichment header: %w", err)
	}
	for _, res := range results {
		row := []string{
			res.WaterpointID,
			optFloat(res.ElevationMeters),
			string(res.VulnerabilityLabel),
			res.RationaleText,
			string(res.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write enrichment row %s: %w", res.WaterpointID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEnrichmentsFile writes an enrichment table to disk.
func WriteEnrichmentsFile(path string, results []domain.EnrichmentResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create enrichment file: %w", err)
	}
	if err := WriteEnrichments(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTiered writes the final audit table: every carried input field,
// the enrichment, and the tier assignment with its justification. Absent
// values stay empty, never zero.
func WriteTiered(w io.Writer, records []domain.TieredRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tieredColumns); err != nil {
		return fmt.Errorf("write tiered header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.SourceType,
			string(rec.Status),
			rec.District,
			optInt(rec.PopulationServed),
			optInt(rec.InstallYear),
			optFloat(rec.Lat),
			optFloat(rec.Lon),
			optFloat(rec.Enrichment.ElevationMeters),
			string(rec.Enrichment.VulnerabilityLabel),
			rec.Enrichment.RationaleText,
			string(rec.Enrichment.Status),
			string(rec.Tier),
			rec.TierReason,
			rec.TierNote,
			rec.RunID,
			rec.ProcessedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write tiered row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTieredFile writes the tiered table to disk.
func WriteTieredFile(path string, records []domain.TieredRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tiered file: %w", err)
	}
	if err := WriteTiered(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
