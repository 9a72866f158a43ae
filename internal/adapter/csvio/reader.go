// Package csvio reads WPdx waterpoint extracts and enrichment tables and
// writes the tiered output. Column names follow the WPdx "clean" export
// schema; rows are never mutated, only parsed.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

// WPdx extract column names.
const (
	colID         = "wpdx_id"
	colSourceType = "water_source_clean"
	colStatus     = "status_clean"
	colPopulation = "served_population"
	colYear       = "install_year"
	colDistrict   = "clean_adm2"
	colLat        = "lat_deg_dd"
	colLon        = "lon_deg_dd"
)

// Enrichment table column names, shared by the reader and writer so a
// `prioritiser enrich` output feeds straight into `prioritiser tier`.
const (
	colElevation = "elevation_m"
	colLabel     = "vulnerability_label"
	colRationale = "vulnerability_rationale"
	colEnrStatus = "enrichment_status"
)

// Reader parses source and enrichment CSV files.
type Reader struct {
	// currentYear anchors install-year plausibility checks.
	currentYear int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewReader creates a reader. currentYear should match the tiering
// thresholds so normalization and the cascade agree on what "future" means.
func NewReader(currentYear int, metrics *observability.Metrics, logger *slog.Logger) *Reader {
	return &Reader{currentYear: currentYear, metrics: metrics, logger: logger}
}

// header maps column names to indices, tolerating a UTF-8 BOM on the
// first column and arbitrary column order.
type header map[string]int

func parseHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		h[strings.ToLower(name)] = i
	}
	return h
}

func (h header) field(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadWaterpoints parses a WPdx extract. Rows without a wpdx_id are
// skipped with a warning; malformed optional numerics degrade to absence
// and are counted, never coerced to zero.
func (r *Reader) ReadWaterpoints(rd io.Reader) ([]domain.WaterpointRecord, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read source header: %w", err)
	}
	h := parseHeader(head)
	if _, ok := h[colID]; !ok {
		return nil, fmt.Errorf("source CSV is missing the %s column", colID)
	}

	var records []domain.WaterpointRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read source row %d: %w", line, err)
		}

		id := h.field(row, colID)
		if id == "" {
			r.metrics.MalformedFields.Inc()
			r.logger.Warn("skipping source row without id", "line", line)
			continue
		}

		rec := domain.WaterpointRecord{
			ID:         id,
			SourceType: h.field(row, colSourceType),
			Status:     domain.ParseStatus(h.field(row, colStatus)),
			District:   h.field(row, colDistrict),
			Lat:        domain.ParseOptionalCoord(h.field(row, colLat)),
			Lon:        domain.ParseOptionalCoord(h.field(row, colLon)),
		}

		var malformed bool
		rec.PopulationServed, malformed = domain.ParseOptionalCount(h.field(row, colPopulation))
		if malformed {
			r.warnMalformed(line, id, colPopulation, h.field(row, colPopulation))
		}
		rec.InstallYear, malformed = domain.ParseOptionalYear(h.field(row, colYear), r.currentYear)
		if malformed {
			r.warnMalformed(line, id, colYear, h.field(row, colYear))
		}

		r.metrics.RecordsRead.Inc()
		records = append(records, rec)
	}
	return records, nil
}

func (r *Reader) warnMalformed(line int, id, column, value string) {
	r.metrics.MalformedFields.Inc()
	r.logger.Warn("malformed field treated as absent",
		"line", line,
		"waterpoint_id", id,
		"column", column,
		"value", value,
	)
}

// ReadWaterpointsFile reads a WPdx extract from disk.
func (r *Reader) ReadWaterpointsFile(path string) ([]domain.WaterpointRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()
	return r.ReadWaterpoints(f)
}

// ReadEnrichments parses a precomputed enrichment table. An absent or
// unrecognized label reads as Unclassified; an absent status defaults to
// failed so a hand-edited table cannot claim enrichment it does not carry.
func (r *Reader) ReadEnrichments(rd io.Reader) ([]domain.EnrichmentResult, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read enrichment header: %w", err)
	}
	h := parseHeader(head)
	if _, ok := h[colID]; !ok {
		return nil, fmt.Errorf("enrichment CSV is missing the %s column", colID)
	}

	var results []domain.EnrichmentResult
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read enrichment row %d: %w", line, err)
		}

		id := h.field(row, colID)
		if id == "" {
			r.metrics.MalformedFields.Inc()
			r.logger.Warn("skipping enrichment row without id", "line", line)
			continue
		}

		res := domain.EnrichmentResult{
			WaterpointID:       id,
			ElevationMeters:    domain.ParseOptionalCoord(h.field(row, colElevation)),
			VulnerabilityLabel: domain.ParseVulnerabilityLabel(h.field(row, colLabel)),
			RationaleText:      h.field(row, colRationale),
			Status:             parseEnrichmentStatus(h.field(row, colEnrStatus)),
		}
		results = append(results, res)
	}
	return results, nil
}

// ReadEnrichmentsFile reads an enrichment table from disk.
func (r *Reader) ReadEnrichmentsFile(path string) ([]domain.EnrichmentResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open enrichment file: %w", err)
	}
	defer f.Close()
	return r.ReadEnrichments(f)
}

func parseEnrichmentStatus(s string) domain.EnrichmentStatus {
	switch domain.EnrichmentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case domain.EnrichmentOK:
		return domain.EnrichmentOK
	case domain.EnrichmentPartial:
		return domain.EnrichmentPartial
	case domain.EnrichmentMissing:
		return domain.EnrichmentMissing
	default:
		return domain.EnrichmentFailed
	}
}
