// Package domain models WPdx waterpoint records and their priority-tier
// assignment for the monsoon flood anticipatory action framework.
//
// # Data Source
//
// Waterpoint rows come from a WPdx+ extract covering the framework's
// eight monsoon-exposed districts. The columns this package consumes:
//
//	wpdx_id            stable external identifier, the join key
//	water_source_clean source type (borehole, dug well, piped, ...)
//	status_clean       functional / non-functional / unknown
//	served_population  optional non-negative integer
//	install_year       optional integer, often written through a float
//	clean_adm2         district
//	lat_deg_dd / lon_deg_dd   WGS-84 coordinates, optional
//
// Missing values appear as empty strings or sentinels ("N/A", "unknown",
// "-"). These coerce to explicit absence, never to zero: a waterpoint
// with an unrecorded served population must not be scored as serving
// nobody. See [ParseOptionalCount] and [ParseOptionalYear].
//
// # Enrichment
//
// Each record is enriched out-of-band with a terrain elevation (meters)
// and a categorical flood-vulnerability label produced by an external
// reasoning service. The label set is High / Medium / Low plus an
// Unclassified fallback; the service's free-text rationale is carried
// through for audit but is opaque to every rule.
//
// # Tier cascade
//
// Tiering is an ordered rule cascade over the joined record; the first
// applicable rule wins:
//
//	Unknown  no vulnerability signal and population or install year
//	         missing ("insufficient data")
//	Tier 1   high vulnerability, population above the high cutoff,
//	         infrastructure older than the age cutoff: rehabilitate
//	         before the flood season
//	Tier 2   high or medium vulnerability, population above the
//	         anticipatory action band floor: pre-position during the
//	         5-15 day window
//	Tier 3   everything else: monitor and post-shock assistance
//
// Cutoff values are configuration ([Thresholds]); the documented defaults
// come from the framework's prioritisation worksheet. Assignment is pure
// and deterministic given a Thresholds value: the only time dependence is
// the configured CurrentYear reference.
package domain
