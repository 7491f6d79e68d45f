package temporal

import (
	"math"
	"time"
)

// DefaultHalfLifeDays is used when a non-positive half-life is supplied.
const DefaultHalfLifeDays = 365.0

// Decay returns the age multiplier for content published at publishedAt,
// measured against the current time.
func Decay(publishedAt *time.Time, halfLifeDays float64) float64 {
	return DecayAt(time.Now(), publishedAt, halfLifeDays)
}

// DecayAt is Decay with an explicit reference time. The result is in (0, 1]:
// unknown dates give 1 and future dates are treated as age zero.
func DecayAt(now time.Time, publishedAt *time.Time, halfLifeDays float64) float64 {
	if publishedAt == nil || publishedAt.IsZero() {
		return 1.0
	}
	if halfLifeDays <= 0 || math.IsNaN(halfLifeDays) || math.IsInf(halfLifeDays, 0) {
		halfLifeDays = DefaultHalfLifeDays
	}

	ageDays := now.Sub(*publishedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	lambda := math.Ln2 / halfLifeDays
	return math.Exp(-lambda * ageDays)
}
