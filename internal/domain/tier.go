package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Thresholds holds the tiering cutoffs. The exact values are operational
// judgment calls from the anticipatory action framework, pending
// validation against ground truth, so they are configuration rather than
// constants baked into the cascade.
type Thresholds struct {
	// HighPopulation is the served-population cutoff above which an
	// exposed, aging waterpoint qualifies for pre-season rehabilitation.
	HighPopulation int
	// MinPopulation is the lower bound of the anticipatory action band:
	// waterpoints serving fewer people are monitored rather than targeted
	// during the 5-15 day pre-positioning window.
	MinPopulation int
	// AgeYears is the infrastructure age beyond which spare parts and
	// full rehabilitation become a pre-season concern.
	AgeYears int
	// CurrentYear anchors the age computation so reruns over the same
	// snapshot are reproducible.
	CurrentYear int
}

// DefaultThresholds returns the documented defaults: population cutoffs
// 2500 and 1000 from the framework's prioritisation worksheet, and a
// 25-year age cutoff, which as of the 2025 monsoon season matches the
// worksheet's fixed "installed before 2000" rule. CurrentYear comes from
// the package clock.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighPopulation: 2500,
		MinPopulation:  1000,
		AgeYears:       25,
		CurrentYear:    clock.Now().UTC().Year(),
	}
}

// Validate rejects threshold combinations under which the cascade would
// be degenerate.
func (t Thresholds) Validate() error {
	if t.MinPopulation < 0 {
		return errors.New("min population threshold must be non-negative")
	}
	if t.HighPopulation <= t.MinPopulation {
		return errors.New("high population threshold must exceed min population threshold")
	}
	if t.AgeYears <= 0 {
		return errors.New("age threshold must be positive")
	}
	if t.CurrentYear < 1900 {
		return errors.New("current year reference is implausible")
	}
	return nil
}

// AssignTier maps a joined record to exactly one tier. The cascade is
// evaluated in fixed order and the first applicable rule wins, so a
// record satisfying both the Tier 1 and Tier 2 predicates resolves to
// Tier 1. The function is total: every record gets a tier, and Unknown
// is produced only by the insufficient-data gate.
func AssignTier(rec JoinedRecord, th Thresholds) (Tier, string) {
	pop := rec.PopulationServed
	year := rec.InstallYear
	label := rec.Enrichment.VulnerabilityLabel

	// Insufficient-data gate: with no vulnerability signal and a missing
	// operational attribute there is nothing to tier on. Guards against
	// fabricating a priority from partial information.
	if !label.Classified() && (pop == nil || year == nil) {
		return TierUnknown, ReasonInsufficientData
	}

	// Tier 1: large population on aging infrastructure in an exposed
	// location needs rehabilitation before the flood season starts.
	if label.Elevated() && pop != nil && year != nil &&
		*pop > th.HighPopulation && th.CurrentYear-*year > th.AgeYears {
		return Tier1, ReasonPreSeasonRehab
	}

	// Tier 2: exposed or moderately exposed waterpoints above the band
	// floor are the actionable targets of the pre-positioning window.
	// The band is open-ended above: Tier 1 firing first carves out the
	// full-rehabilitation cases, and a large site that misses Tier 1 on
	// age stays actionable here.
	if (label.Elevated() || label.Moderate()) && pop != nil && *pop > th.MinPopulation {
		return Tier2, ReasonAAFocus
	}

	// Tier 3 is the terminal catch-all. It never yields Unknown.
	return Tier3, ReasonMonitor
}

// Tiered produces the final audit record for a joined record. The input
// is not mutated; ProcessedAt comes from the package clock.
func Tiered(rec JoinedRecord, th Thresholds, runID string) TieredRecord {
	tier, reason := AssignTier(rec, th)
	return TieredRecord{
		JoinedRecord: rec,
		Tier:         tier,
		TierReason:   reason,
		TierNote:     tierNote(rec, th, tier),
		RunID:        runID,
		ProcessedAt:  clock.Now().UTC(),
	}
}

// tierNote renders the human-readable justification carried alongside the
// machine reason. Wording follows the prioritisation worksheet the field
// teams already use.
func tierNote(rec JoinedRecord, th Thresholds, tier Tier) string {
	pop := rec.PopulationServed
	year := rec.InstallYear

	if tier == TierUnknown {
		var missing []string
		if pop == nil {
			missing = append(missing, "population_served")
		}
		if year == nil {
			missing = append(missing, "install_year")
		}
		if !rec.Enrichment.VulnerabilityLabel.Classified() {
			missing = append(missing, "vulnerability_label")
		}
		return "Cannot assign tier, missing data: " + strings.Join(missing, ", ")
	}

	var ageNote string
	if year != nil {
		age := th.CurrentYear - *year
		if age > th.AgeYears {
			ageNote = fmt.Sprintf("installed %d, old infrastructure, parts may be hard to source", *year)
		} else {
			ageNote = fmt.Sprintf("installed %d, relatively recent", *year)
		}
	} else {
		ageNote = "install year not recorded"
	}

	var popNote string
	if pop != nil {
		popNote = fmt.Sprintf("serves %d people", *pop)
	} else {
		popNote = "served population not recorded"
	}

	switch tier {
	case Tier1:
		return fmt.Sprintf("Tier 1: %s at a high-vulnerability site (%s). Requires rehabilitation before the flood season begins.", popNote, ageNote)
	case Tier2:
		return fmt.Sprintf("Tier 2: %s, %s vulnerability (%s). Actionable during the anticipatory action window; pre-position supplies.", popNote, strings.ToLower(string(rec.Enrichment.VulnerabilityLabel)), ageNote)
	default:
		return fmt.Sprintf("Tier 3: %s (%s). Monitor during the season and include in post-flood recovery planning.", popNote, ageNote)
	}
}
