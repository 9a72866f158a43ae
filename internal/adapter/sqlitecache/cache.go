// Package sqlitecache persists enrichment results between runs so a
// re-run over the same WPdx extract does not repeat paid provider calls.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

// Store is a sqlite-backed enrichment cache keyed by waterpoint id.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	wpdx_id     TEXT PRIMARY KEY,
	elevation_m REAL,
	label       TEXT NOT NULL,
	rationale   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(migration); err != nil {
		return fmt.Errorf("migrate cache db: %w", err)
	}
	return nil
}

// Get returns the cached result for a waterpoint id, if any.
func (s *Store) Get(ctx context.Context, id string) (domain.EnrichmentResult, bool, error) {
	var (
		elevation sql.NullFloat64
		label     string
		rationale string
		status    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT elevation_m, label, rationale, status FROM enrichment_cache WHERE wpdx_id = ?`, id,
	).Scan(&elevation, &label, &rationale, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EnrichmentResult{}, false, nil
	}
	if err != nil {
		return domain.EnrichmentResult{}, false, fmt.Errorf("cache lookup %s: %w", id, err)
	}

	res := domain.EnrichmentResult{
		WaterpointID:       id,
		VulnerabilityLabel: domain.VulnerabilityLabel(label),
		RationaleText:      rationale,
		Status:             domain.EnrichmentStatus(status),
	}
	if elevation.Valid {
		res.ElevationMeters = &elevation.Float64
	}
	return res, true, nil
}

// Put upserts a result. Callers should only store usable results
// (status ok or partial); failed enrichments stay uncached so the next
// run retries them.
func (s *Store) Put(ctx context.Context, res domain.EnrichmentResult) error {
	var elevation sql.NullFloat64
	if res.ElevationMeters != nil {
		elevation = sql.NullFloat64{Float64: *res.ElevationMeters, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_cache (wpdx_id, elevation_m, label, rationale, status, cached_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (wpdx_id) DO UPDATE SET
			elevation_m = excluded.elevation_m,
			label = excluded.label,
			rationale = excluded.rationale,
			status = excluded.status,
			cached_at = datetime('now')`,
		res.WaterpointID, elevation, string(res.VulnerabilityLabel), res.RationaleText, string(res.Status),
	)
	if err != nil {
		return fmt.Errorf("cache store %s: %w", res.WaterpointID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
