package domain

import "context"

// ElevationProvider returns terrain elevation for a coordinate. The
// boolean is false when the provider has no data for the location (for
// example a coordinate over open water), which is absence, not an error.
type ElevationProvider interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, bool, error)
}

// VulnerabilityAssessment is the reasoning service's judgment for one
// waterpoint. Rationale is free text carried through for audit only.
type VulnerabilityAssessment struct {
	Label     VulnerabilityLabel
	Rationale string
}

// VulnerabilityClassifier obtains an externally computed flood
// vulnerability judgment for a waterpoint. Elevation is optional context.
type VulnerabilityClassifier interface {
	Classify(ctx context.Context, rec WaterpointRecord, elevation *float64) (VulnerabilityAssessment, error)
}
