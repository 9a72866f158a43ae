package domain

import "fmt"

// DataIntegrityError reports an identifier ambiguity that makes tier
// assignment untrustworthy. It is fatal for the batch: silently picking
// one of two rows sharing an id would corrupt the audit trail.
type DataIntegrityError struct {
	Set   string // "source" or "enrichment"
	ID    string
	Count int
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("duplicate waterpoint id %q in %s set (%d rows)", e.ID, e.Set, e.Count)
}

// Join left-joins enrichment results onto source records by waterpoint id.
// Every source record appears in the output exactly once, in input order.
// Records without a matching enrichment row receive AbsentEnrichment so
// they survive into the insufficient-data gate instead of being dropped.
//
// Duplicate ids on either side return a *DataIntegrityError. Enrichment
// rows that match no source record are ignored: the source set defines
// the batch.
func Join(records []WaterpointRecord, results []EnrichmentResult) ([]JoinedRecord, error) {
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		seen[rec.ID]++
	}
	for _, rec := range records {
		if n := seen[rec.ID]; n > 1 {
			return nil, &DataIntegrityError{Set: "source", ID: rec.ID, Count: n}
		}
	}

	byID := make(map[string]EnrichmentResult, len(results))
	counts := make(map[string]int, len(results))
	for _, res := range results {
		counts[res.WaterpointID]++
		if n := counts[res.WaterpointID]; n > 1 {
			return nil, &DataIntegrityError{Set: "enrichment", ID: res.WaterpointID, Count: n}
		}
		byID[res.WaterpointID] = res
	}

	joined := make([]JoinedRecord, 0, len(records))
	for _, rec := range records {
		enrichment, ok := byID[rec.ID]
		if !ok {
			enrichment = AbsentEnrichment(rec.ID)
		}
		if enrichment.VulnerabilityLabel == "" {
			enrichment.VulnerabilityLabel = VulnerabilityUnclassified
		}
		joined = append(joined, JoinedRecord{WaterpointRecord: rec, Enrichment: enrichment})
	}
	return joined, nil
}
