package enums

import "strings"

// ExclusionPolicy decides which previously swiped targets are kept out of a
// generated candidate pool.
type ExclusionPolicy string

const (
	// ExclusionActiveOnly excludes only targets of currently active swipes.
	// Expired and revoked targets may be proposed again.
	ExclusionActiveOnly ExclusionPolicy = "active_only"
	// ExclusionAllPrior excludes every target the user has a swipe row for.
	ExclusionAllPrior ExclusionPolicy = "all_prior"
)

func ParseExclusionPolicy(raw string) (ExclusionPolicy, bool) {
	value := ExclusionPolicy(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case ExclusionActiveOnly, ExclusionAllPrior:
		return value, true
	default:
		return "", false
	}
}
