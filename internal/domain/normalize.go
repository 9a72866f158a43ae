package domain

import (
	"math"
	"strconv"
	"strings"
)

// absentSentinels are the markers the WPdx export uses for "no value".
// They coerce to absence, never to zero: a served_population of "unknown"
// treated as 0 would silently bias the record toward low priority.
var absentSentinels = map[string]struct{}{
	"":        {},
	"n/a":     {},
	"na":      {},
	"nan":     {},
	"none":    {},
	"null":    {},
	"unknown": {},
	"-":       {},
	"--":      {},
}

func isAbsent(s string) bool {
	_, ok := absentSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseOptionalCount coerces a population-style field to a non-negative
// integer or absence. The second return reports a malformed value: text
// that is neither a recognized absence sentinel nor a usable number
// (including negatives), which callers should surface as a data-quality
// warning. Fractional inputs like "1250.0" parse because the upstream
// export writes integers through a float type.
func ParseOptionalCount(s string) (*int, bool) {
	if isAbsent(s) {
		return nil, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil, true
	}
	n := int(f)
	return &n, false
}

// ParseOptionalYear coerces an install-year field to an integer or absence.
// Years outside [1900, CurrentYear+1] are treated as malformed: the WPdx
// programme postdates 1900 and a future install year is a recording error.
func ParseOptionalYear(s string, currentYear int) (*int, bool) {
	if isAbsent(s) {
		return nil, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, true
	}
	y := int(f)
	if y < 1900 || y > currentYear+1 {
		return nil, true
	}
	return &y, false
}

// ParseOptionalCoord coerces a latitude/longitude field to a float or
// absence. Coordinates are informational (elevation lookup, audit), so
// malformed values degrade to absence without a separate malformed flag.
func ParseOptionalCoord(s string) *float64 {
	if isAbsent(s) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
