package rules

import "github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"

const (
	DefaultAgeMin      = 18
	DefaultAgeMax      = 35
	DefaultMaxDistance = 25
)

type PreferenceSource string

const (
	PreferenceSourceFilter   PreferenceSource = "filter"
	PreferenceSourceProfile  PreferenceSource = "profile"
	PreferenceSourceDefaults PreferenceSource = "defaults"
)

type Defaults struct {
	AgeMin      int
	AgeMax      int
	MaxDistance int
}

type EffectivePreferences struct {
	AgeMin       int
	AgeMax       int
	MaxDistance  int
	VerifiedOnly bool
	Source       PreferenceSource
}

// ResolvePreferences picks the user filter record first, then the embedded
// preferences, then defaults. Missing fields of a lower tier fall back to
// defaults field by field.
func ResolvePreferences(user model.User, filter *model.UserFilter, defaults Defaults) EffectivePreferences {
	defaults = normalizeDefaults(defaults)

	if filter != nil {
		ageMin, ageMax := NormalizeAgeRange(filter.AgeMin, filter.AgeMax, defaults.AgeMin, defaults.AgeMax)
		return EffectivePreferences{
			AgeMin:       ageMin,
			AgeMax:       ageMax,
			MaxDistance:  positiveOr(filter.MaxDistance, defaults.MaxDistance),
			VerifiedOnly: filter.VerifiedOnly,
			Source:       PreferenceSourceFilter,
		}
	}

	if prefs := user.Preferences; prefs != nil && (prefs.AgeRange != nil || prefs.MaxDistance != nil) {
		ageMin, ageMax := defaults.AgeMin, defaults.AgeMax
		if prefs.AgeRange != nil {
			ageMin, ageMax = NormalizeAgeRange(prefs.AgeRange.Min, prefs.AgeRange.Max, defaults.AgeMin, defaults.AgeMax)
		}
		maxDistance := defaults.MaxDistance
		if prefs.MaxDistance != nil {
			maxDistance = positiveOr(*prefs.MaxDistance, defaults.MaxDistance)
		}
		return EffectivePreferences{
			AgeMin:      ageMin,
			AgeMax:      ageMax,
			MaxDistance: maxDistance,
			Source:      PreferenceSourceProfile,
		}
	}

	return EffectivePreferences{
		AgeMin:      defaults.AgeMin,
		AgeMax:      defaults.AgeMax,
		MaxDistance: defaults.MaxDistance,
		Source:      PreferenceSourceDefaults,
	}
}

func NormalizeAgeRange(ageMin, ageMax, defaultMin, defaultMax int) (int, int) {
	if ageMin <= 0 {
		ageMin = defaultMin
	}
	if ageMax <= 0 {
		ageMax = defaultMax
	}
	if ageMin > ageMax {
		ageMin, ageMax = ageMax, ageMin
	}
	return ageMin, ageMax
}

func normalizeDefaults(d Defaults) Defaults {
	if d.AgeMin <= 0 {
		d.AgeMin = DefaultAgeMin
	}
	if d.AgeMax <= 0 {
		d.AgeMax = DefaultAgeMax
	}
	if d.MaxDistance <= 0 {
		d.MaxDistance = DefaultMaxDistance
	}
	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
