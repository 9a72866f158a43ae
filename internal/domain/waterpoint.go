package domain

import (
	"strings"
	"time"
)

// Status is the operational functionality flag reported for a waterpoint.
type Status string

const (
	StatusFunctional    Status = "functional"
	StatusNonFunctional Status = "non-functional"
	StatusUnknown       Status = "unknown"
)

// ParseStatus normalizes a WPdx status string. The source data carries
// variants like "Functional", "Non-Functional", "yes", "no"; anything
// unrecognized maps to StatusUnknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "functional", "yes", "y":
		return StatusFunctional
	case "non-functional", "non functional", "nonfunctional", "no", "n":
		return StatusNonFunctional
	default:
		return StatusUnknown
	}
}

// VulnerabilityLabel is the externally produced flood-exposure classification.
// Tiering treats it as an opaque categorical with a small recognized set;
// free-text rationale never influences a rule.
type VulnerabilityLabel string

const (
	VulnerabilityHigh         VulnerabilityLabel = "High"
	VulnerabilityMedium       VulnerabilityLabel = "Medium"
	VulnerabilityLow          VulnerabilityLabel = "Low"
	VulnerabilityUnclassified VulnerabilityLabel = "Unclassified"
)

// ParseVulnerabilityLabel maps a raw label string onto the recognized set.
// "moderate" is accepted as an alias for Medium. Anything else, including
// the empty string, falls back to Unclassified.
func ParseVulnerabilityLabel(s string) VulnerabilityLabel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return VulnerabilityHigh
	case "medium", "moderate":
		return VulnerabilityMedium
	case "low":
		return VulnerabilityLow
	default:
		return VulnerabilityUnclassified
	}
}

// Classified reports whether the label carries usable signal.
func (l VulnerabilityLabel) Classified() bool {
	return l == VulnerabilityHigh || l == VulnerabilityMedium || l == VulnerabilityLow
}

// Elevated reports whether the label indicates elevated flood exposure.
func (l VulnerabilityLabel) Elevated() bool { return l == VulnerabilityHigh }

// Moderate reports whether the label indicates moderate flood exposure.
func (l VulnerabilityLabel) Moderate() bool { return l == VulnerabilityMedium }

// WaterpointRecord is one physical water source from the WPdx extract.
// Optional numerics are pointers: nil means the source data did not carry
// a usable value, which is never the same as zero.
type WaterpointRecord struct {
	ID               string   `json:"wpdx_id"`
	SourceType       string   `json:"source_type,omitempty"`
	Status           Status   `json:"status"`
	District         string   `json:"district,omitempty"`
	PopulationServed *int     `json:"population_served,omitempty"`
	InstallYear      *int     `json:"install_year,omitempty"`
	Lat              *float64 `json:"lat,omitempty"`
	Lon              *float64 `json:"lon,omitempty"`
}

// EnrichmentStatus records how much of the external enrichment succeeded
// for a record.
type EnrichmentStatus string

const (
	// EnrichmentOK means both elevation and vulnerability were obtained.
	EnrichmentOK EnrichmentStatus = "ok"
	// EnrichmentPartial means exactly one of the two signals was obtained.
	EnrichmentPartial EnrichmentStatus = "partial"
	// EnrichmentFailed means every provider call for the record failed.
	EnrichmentFailed EnrichmentStatus = "failed"
	// EnrichmentMissing means no enrichment row matched the record at join time.
	EnrichmentMissing EnrichmentStatus = "missing"
)

// EnrichmentResult is the external collaborator's output for one waterpoint.
type EnrichmentResult struct {
	WaterpointID       string             `json:"wpdx_id"`
	ElevationMeters    *float64           `json:"elevation_m,omitempty"`
	VulnerabilityLabel VulnerabilityLabel `json:"vulnerability_label"`
	RationaleText      string             `json:"vulnerability_rationale,omitempty"`
	Status             EnrichmentStatus   `json:"enrichment_status"`
}

// AbsentEnrichment returns the placeholder result used when no enrichment
// row exists for a waterpoint. All signal fields are absent, which routes
// the record through the insufficient-data gate.
func AbsentEnrichment(id string) EnrichmentResult {
	return EnrichmentResult{
		WaterpointID:       id,
		VulnerabilityLabel: VulnerabilityUnclassified,
		Status:             EnrichmentMissing,
	}
}

// JoinedRecord is the single consistent per-waterpoint view every tiering
// rule evaluates against.
type JoinedRecord struct {
	WaterpointRecord
	Enrichment EnrichmentResult `json:"enrichment"`
}

// Tier is a discrete priority bucket controlling timing and type of
// intervention for a waterpoint.
type Tier string

const (
	Tier1       Tier = "Tier 1"
	Tier2       Tier = "Tier 2"
	Tier3       Tier = "Tier 3"
	TierUnknown Tier = "Unknown"
)

// Machine-readable reasons naming which cascade rule fired.
const (
	ReasonInsufficientData = "insufficient data"
	ReasonPreSeasonRehab   = "pre-season rehabilitation"
	ReasonAAFocus          = "anticipatory action focus"
	ReasonMonitor          = "monitor"
)

// TieredRecord is the final audit row: every input field carried through,
// plus the tier assignment and its justification.
type TieredRecord struct {
	JoinedRecord
	Tier        Tier      `json:"priority_tier"`
	TierReason  string    `json:"tier_reason"`
	TierNote    string    `json:"tier_note,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
