package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	pop := 3200
	year := 1995
	processed := time.Date(2025, 4, 12, 9, 30, 0, 0, time.UTC)
	rec := domain.TieredRecord{
		JoinedRecord: domain.JoinedRecord{
			WaterpointRecord: domain.WaterpointRecord{
				ID:               "wp-1",
				SourceType:       "tubewell",
				Status:           domain.StatusFunctional,
				District:         "Kurigram",
				PopulationServed: &pop,
				InstallYear:      &year,
			},
			Enrichment: domain.EnrichmentResult{
				WaterpointID:       "wp-1",
				VulnerabilityLabel: domain.VulnerabilityHigh,
				Status:             domain.EnrichmentPartial,
			},
		},
		Tier:        domain.Tier1,
		TierReason:  domain.ReasonPreSeasonRehab,
		RunID:       "run-1",
		ProcessedAt: processed,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("wp-1"), msg.Key)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "wp-1", payload["wpdx_id"])
	assert.Equal(t, "Tier 1", payload["priority_tier"])
	assert.Equal(t, "pre-season rehabilitation", payload["tier_reason"])
	assert.Equal(t, float64(3200), payload["population_served"])

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "priority_tier", msg.Headers[0].Key)
	assert.Equal(t, []byte("Tier 1"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(processed.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_AbsentFieldsOmitted(t *testing.T) {
	rec := domain.TieredRecord{
		JoinedRecord: domain.JoinedRecord{
			WaterpointRecord: domain.WaterpointRecord{ID: "wp-2", Status: domain.StatusUnknown},
			Enrichment:       domain.AbsentEnrichment("wp-2"),
		},
		Tier:       domain.TierUnknown,
		TierReason: domain.ReasonInsufficientData,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.NotContains(t, payload, "population_served", "absent numerics never serialize as zero")
	assert.NotContains(t, payload, "install_year")
	assert.Equal(t, "Unknown", payload["priority_tier"])
}
