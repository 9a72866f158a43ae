package pipeline

import (
	"log/slog"
	"sort"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

// tierOrder fixes the reporting order.
var tierOrder = []domain.Tier{domain.Tier1, domain.Tier2, domain.Tier3, domain.TierUnknown}

// unknownDistrict groups records whose extract carried no adm2 value.
const unknownDistrict = "(district not recorded)"

// PopulationStats describes the served populations within one tier,
// computed over records where the value is known.
type PopulationStats struct {
	Known int
	Min   int
	Max   int
	Mean  float64
}

// Summary is the end-of-run report: tier counts, the per-district
// breakdown field coordinators plan from, and population statistics.
type Summary struct {
	RunID      string
	Total      int
	Tiers      map[domain.Tier]int
	Districts  map[string]map[domain.Tier]int
	Population map[domain.Tier]PopulationStats
}

// Summarize computes the report for a tiered batch.
func Summarize(records []domain.TieredRecord) Summary {
	s := Summary{
		Total:      len(records),
		Tiers:      make(map[domain.Tier]int),
		Districts:  make(map[string]map[domain.Tier]int),
		Population: make(map[domain.Tier]PopulationStats),
	}

	sums := make(map[domain.Tier]int)
	for _, rec := range records {
		s.Tiers[rec.Tier]++

		district := rec.District
		if district == "" {
			district = unknownDistrict
		}
		if s.Districts[district] == nil {
			s.Districts[district] = make(map[domain.Tier]int)
		}
		s.Districts[district][rec.Tier]++

		if rec.PopulationServed == nil {
			continue
		}
		pop := *rec.PopulationServed
		stats := s.Population[rec.Tier]
		if stats.Known == 0 || pop < stats.Min {
			stats.Min = pop
		}
		if pop > stats.Max {
			stats.Max = pop
		}
		stats.Known++
		sums[rec.Tier] += pop
		s.Population[rec.Tier] = stats
	}

	for tier, stats := range s.Population {
		stats.Mean = float64(sums[tier]) / float64(stats.Known)
		s.Population[tier] = stats
	}
	return s
}

// Share returns a tier's percentage of the batch.
func (s Summary) Share(tier domain.Tier) float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Tiers[tier]) / float64(s.Total)
}

// Log writes the report through the structured logger, one line per tier
// and per district so log tooling can filter without parsing prose.
func (s Summary) Log(logger *slog.Logger) {
	logger.Info("run summary", "run_id", s.RunID, "records", s.Total)

	for _, tier := range tierOrder {
		count, ok := s.Tiers[tier]
		if !ok {
			continue
		}
		attrs := []any{
			"run_id", s.RunID,
			"tier", string(tier),
			"count", count,
			"share_pct", s.Share(tier),
		}
		if stats, ok := s.Population[tier]; ok {
			attrs = append(attrs,
				"population_min", stats.Min,
				"population_mean", stats.Mean,
				"population_max", stats.Max,
			)
		}
		logger.Info("tier summary", attrs...)
	}

	districts := make([]string, 0, len(s.Districts))
	for name := range s.Districts {
		districts = append(districts, name)
	}
	sort.Strings(districts)

	for _, name := range districts {
		tiers := s.Districts[name]
		logger.Info("district summary",
			"run_id", s.RunID,
			"district", name,
			"tier1", tiers[domain.Tier1],
			"tier2", tiers[domain.Tier2],
			"tier3", tiers[domain.Tier3],
			"unknown", tiers[domain.TierUnknown],
		)
	}
}
