package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

func tieredRecord(id, district string, tier domain.Tier, pop *int) domain.TieredRecord {
	return domain.TieredRecord{
		JoinedRecord: domain.JoinedRecord{
			WaterpointRecord: domain.WaterpointRecord{
				ID:               id,
				District:         district,
				PopulationServed: pop,
			},
		},
		Tier: tier,
	}
}

func TestSummarize(t *testing.T) {
	records := []domain.TieredRecord{
		tieredRecord("a", "Kurigram", domain.Tier1, intPtr(3200)),
		tieredRecord("b", "Kurigram", domain.Tier2, intPtr(1500)),
		tieredRecord("c", "Gaibandha", domain.Tier2, intPtr(2100)),
		tieredRecord("d", "Gaibandha", domain.Tier3, nil),
		tieredRecord("e", "", domain.TierUnknown, nil),
	}

	s := Summarize(records)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Tiers[domain.Tier1])
	assert.Equal(t, 2, s.Tiers[domain.Tier2])
	assert.Equal(t, 1, s.Tiers[domain.Tier3])
	assert.Equal(t, 1, s.Tiers[domain.TierUnknown])

	assert.InDelta(t, 20.0, s.Share(domain.Tier1), 1e-9)
	assert.InDelta(t, 40.0, s.Share(domain.Tier2), 1e-9)

	t.Run("district breakdown", func(t *testing.T) {
		assert.Equal(t, 1, s.Districts["Kurigram"][domain.Tier1])
		assert.Equal(t, 1, s.Districts["Kurigram"][domain.Tier2])
		assert.Equal(t, 1, s.Districts["Gaibandha"][domain.Tier3])
		assert.Equal(t, 1, s.Districts[unknownDistrict][domain.TierUnknown])
	})

	t.Run("population stats skip unknown values", func(t *testing.T) {
		tier2 := s.Population[domain.Tier2]
		assert.Equal(t, 2, tier2.Known)
		assert.Equal(t, 1500, tier2.Min)
		assert.Equal(t, 2100, tier2.Max)
		assert.InDelta(t, 1800.0, tier2.Mean, 1e-9)

		_, ok := s.Population[domain.Tier3]
		assert.False(t, ok, "no stats for a tier with no known populations")
	})
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	require.Equal(t, 0, s.Total)
	assert.Zero(t, s.Share(domain.Tier1))
}

func TestSummarize_SingleRecordStats(t *testing.T) {
	s := Summarize([]domain.TieredRecord{tieredRecord("a", "Jamalpur", domain.Tier1, intPtr(2800))})

	stats := s.Population[domain.Tier1]
	assert.Equal(t, 1, stats.Known)
	assert.Equal(t, 2800, stats.Min)
	assert.Equal(t, 2800, stats.Max)
	assert.InDelta(t, 2800.0, stats.Mean, 1e-9)
}
