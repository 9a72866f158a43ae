// Package enrich fans waterpoint records out to the external enrichment
// providers and collects one EnrichmentResult per record. Provider
// failures are isolated per record: a batch never fails because one
// waterpoint could not be enriched.
package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

// ResultCache persists enrichment results between runs. Implementations
// must be safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, id string) (domain.EnrichmentResult, bool, error)
	Put(ctx context.Context, res domain.EnrichmentResult) error
}

// Options configures a Collector.
type Options struct {
	// Elevation is optional; nil disables terrain lookups, leaving every
	// result's elevation absent.
	Elevation  domain.ElevationProvider
	Classifier domain.VulnerabilityClassifier
	// Cache is optional; nil disables persistence.
	Cache ResultCache
	// Concurrency bounds in-flight records. Values below 1 mean 1.
	Concurrency int
	// ElevationRPS and ClassifyRPS cap per-provider request rates.
	// Values at or below 0 mean unlimited.
	ElevationRPS float64
	ClassifyRPS  float64
}

// Collector runs the enrichment fan-out.
type Collector struct {
	elevation   domain.ElevationProvider
	classifier  domain.VulnerabilityClassifier
	cache       ResultCache
	concurrency int

	elevationLimiter *rate.Limiter
	classifyLimiter  *rate.Limiter

	metrics *observability.Metrics
	logger  *slog.Logger
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewCollector creates a collector.
func NewCollector(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Collector {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		elevation:        opts.Elevation,
		classifier:       opts.Classifier,
		cache:            opts.Cache,
		concurrency:      concurrency,
		elevationLimiter: newLimiter(opts.ElevationRPS),
		classifyLimiter:  newLimiter(opts.ClassifyRPS),
		metrics:          metrics,
		logger:           logger,
	}
}

// Collect enriches every record and returns results in input order, one
// per record. The only errors returned are context cancellations; every
// provider failure degrades to an absent signal on that record's result.
func (c *Collector) Collect(ctx context.Context, records []domain.WaterpointRecord) ([]domain.EnrichmentResult, error) {
	results := make([]domain.EnrichmentResult, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, rec := range records {
		g.Go(func() error {
			res, err := c.enrichOne(ctx, rec)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Collector) enrichOne(ctx context.Context, rec domain.WaterpointRecord) (domain.EnrichmentResult, error) {
	if cached, ok := c.cacheGet(ctx, rec.ID); ok {
		return cached, nil
	}

	res := domain.EnrichmentResult{
		WaterpointID:       rec.ID,
		VulnerabilityLabel: domain.VulnerabilityUnclassified,
	}

	elevation, err := c.lookupElevation(ctx, rec)
	if err != nil {
		return domain.EnrichmentResult{}, err
	}
	res.ElevationMeters = elevation

	assessment, err := c.classify(ctx, rec, elevation)
	if err != nil {
		return domain.EnrichmentResult{}, err
	}
	res.VulnerabilityLabel = assessment.Label
	res.RationaleText = assessment.Rationale

	res.Status = enrichmentStatus(res)
	if res.Status == domain.EnrichmentFailed {
		c.metrics.RecordsFailed.Inc()
	} else {
		c.cachePut(ctx, res)
	}
	return res, nil
}

// lookupElevation returns the terrain elevation or nil when the record
// has no coordinates, the provider has no coverage, or the call failed.
// Only context cancellation propagates as an error.
func (c *Collector) lookupElevation(ctx context.Context, rec domain.WaterpointRecord) (*float64, error) {
	if c.elevation == nil || rec.Lat == nil || rec.Lon == nil {
		return nil, nil
	}
	if err := c.elevationLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	meters, found, err := c.elevation.Elevation(ctx, *rec.Lat, *rec.Lon)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("elevation lookup failed",
			"waterpoint_id", rec.ID,
			"error", err,
		)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &meters, nil
}

func (c *Collector) classify(ctx context.Context, rec domain.WaterpointRecord, elevation *float64) (domain.VulnerabilityAssessment, error) {
	if err := c.classifyLimiter.Wait(ctx); err != nil {
		return domain.VulnerabilityAssessment{}, err
	}

	assessment, err := c.classifier.Classify(ctx, rec, elevation)
	if err != nil {
		if ctx.Err() != nil {
			return domain.VulnerabilityAssessment{}, ctx.Err()
		}
		c.logger.Warn("vulnerability classification failed",
			"waterpoint_id", rec.ID,
			"error", err,
		)
		return domain.VulnerabilityAssessment{Label: domain.VulnerabilityUnclassified}, nil
	}
	return assessment, nil
}

// enrichmentStatus grades how much signal the record ended up with: both
// elevation and a usable label, exactly one, or neither.
func enrichmentStatus(res domain.EnrichmentResult) domain.EnrichmentStatus {
	haveElevation := res.ElevationMeters != nil
	haveLabel := res.VulnerabilityLabel.Classified()
	switch {
	case haveElevation && haveLabel:
		return domain.EnrichmentOK
	case haveElevation || haveLabel:
		return domain.EnrichmentPartial
	default:
		return domain.EnrichmentFailed
	}
}

func (c *Collector) cacheGet(ctx context.Context, id string) (domain.EnrichmentResult, bool) {
	if c.cache == nil {
		return domain.EnrichmentResult{}, false
	}
	res, found, err := c.cache.Get(ctx, id)
	if err != nil {
		c.logger.Warn("enrichment cache lookup failed", "waterpoint_id", id, "error", err)
		return domain.EnrichmentResult{}, false
	}
	if !found {
		c.metrics.EnrichmentCache.WithLabelValues("sqlite", "miss").Inc()
		return domain.EnrichmentResult{}, false
	}
	c.metrics.EnrichmentCache.WithLabelValues("sqlite", "hit").Inc()
	return res, true
}

func (c *Collector) cachePut(ctx context.Context, res domain.EnrichmentResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, res); err != nil {
		c.logger.Warn("enrichment cache store failed", "waterpoint_id", res.WaterpointID, "error", err)
	}
}
