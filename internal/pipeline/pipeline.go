// Package pipeline orchestrates one prioritisation run: read the source
// extract, obtain enrichment, join, tier, and write every sink. A run is
// a one-shot batch; long-running behavior (metrics, readiness) exists for
// the monitor endpoints while a large batch is in flight.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

// Source provides the waterpoint batch.
type Source interface {
	Waterpoints(ctx context.Context) ([]domain.WaterpointRecord, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]domain.WaterpointRecord, error)

func (f SourceFunc) Waterpoints(ctx context.Context) ([]domain.WaterpointRecord, error) {
	return f(ctx)
}

// Enricher produces enrichment results for a batch. The live collector
// and the precomputed-table reader both satisfy this.
type Enricher interface {
	Collect(ctx context.Context, records []domain.WaterpointRecord) ([]domain.EnrichmentResult, error)
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, records []domain.WaterpointRecord) ([]domain.EnrichmentResult, error)

func (f EnricherFunc) Collect(ctx context.Context, records []domain.WaterpointRecord) ([]domain.EnrichmentResult, error) {
	return f(ctx, records)
}

// TieredSink receives the complete tiered batch.
type TieredSink interface {
	WriteTiered(ctx context.Context, records []domain.TieredRecord) error
}

// SinkFunc adapts a function to the TieredSink interface.
type SinkFunc func(ctx context.Context, records []domain.TieredRecord) error

func (f SinkFunc) WriteTiered(ctx context.Context, records []domain.TieredRecord) error {
	return f(ctx, records)
}

// Prioritiser runs the read-enrich-join-tier-write batch.
type Prioritiser struct {
	source     Source
	enricher   Enricher
	sinks      []TieredSink
	thresholds domain.Thresholds

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Prioritiser. Thresholds must already be validated.
func New(source Source, enricher Enricher, sinks []TieredSink, thresholds domain.Thresholds, logger *slog.Logger, metrics *observability.Metrics) *Prioritiser {
	return &Prioritiser{
		source:     source,
		enricher:   enricher,
		sinks:      sinks,
		thresholds: thresholds,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once at least one batch has completed.
func (p *Prioritiser) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no batch completed yet")
	}
	return nil
}

// Run executes one batch and returns its summary. Any error is fatal for
// the batch: source read failures, duplicate ids at join, sink write
// failures. Per-record enrichment failures are not errors; they surface
// as Unknown-tier rows in the output.
func (p *Prioritiser) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("prioritisation run started", "run_id", runID)

	records, err := p.source.Waterpoints(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read source: %w", err)
	}
	p.logger.Info("source read", "run_id", runID, "records", len(records))

	results, err := p.enricher.Collect(ctx, records)
	if err != nil {
		return Summary{}, fmt.Errorf("collect enrichment: %w", err)
	}

	joined, err := domain.Join(records, results)
	if err != nil {
		var integrity *domain.DataIntegrityError
		if errors.As(err, &integrity) {
			p.metrics.IntegrityErrors.Inc()
		}
		return Summary{}, fmt.Errorf("join enrichment: %w", err)
	}

	tiered := make([]domain.TieredRecord, len(joined))
	for i, rec := range joined {
		tiered[i] = domain.Tiered(rec, p.thresholds, runID)
		p.metrics.RecordsTiered.WithLabelValues(string(tiered[i].Tier)).Inc()
	}

	for _, sink := range p.sinks {
		if err := sink.WriteTiered(ctx, tiered); err != nil {
			return Summary{}, fmt.Errorf("write tiered records: %w", err)
		}
	}

	p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	summary := Summarize(tiered)
	summary.RunID = runID
	summary.Log(p.logger)
	return summary, nil
}
