package rules

import (
	"math"
	"time"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
)

const (
	VerifiedBonus    = 0.2
	RecentDayBonus   = 0.3
	RecentWeekBonus  = 0.1
	AgeAffinityMax   = 0.3
	AgeAffinityScale = 20.0
	JitterMax        = 0.2
	recentDayWindow  = 24 * time.Hour
	recentWeekWindow = 7 * 24 * time.Hour
)

// Score ranks a candidate for the requesting user. jitter is expected in
// [0, JitterMax) and is added unchanged.
func Score(requester, candidate model.User, now time.Time, jitter float64) float64 {
	score := 0.0
	if candidate.Verified {
		score += VerifiedBonus
	}
	score += RecencyBonus(candidate.LastActiveAt, now)
	score += AgeAffinity(requester.Age, candidate.Age)
	return score + jitter
}

func RecencyBonus(lastActive *time.Time, now time.Time) float64 {
	if lastActive == nil || lastActive.IsZero() {
		return 0
	}
	since := now.Sub(*lastActive)
	switch {
	case since < recentDayWindow:
		return RecentDayBonus
	case since < recentWeekWindow:
		return RecentWeekBonus
	default:
		return 0
	}
}

func AgeAffinity(requesterAge, candidateAge int) float64 {
	diff := math.Abs(float64(requesterAge - candidateAge))
	return math.Max(0, AgeAffinityMax-diff/AgeAffinityScale)
}
