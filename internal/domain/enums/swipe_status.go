package enums

import "strings"

type SwipeStatus string

const (
	SwipeStatusActive  SwipeStatus = "active"
	SwipeStatusExpired SwipeStatus = "expired"
	SwipeStatusRevoked SwipeStatus = "revoked"
)

func ParseSwipeStatus(raw string) (SwipeStatus, bool) {
	value := SwipeStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case SwipeStatusActive, SwipeStatusExpired, SwipeStatusRevoked:
		return value, true
	default:
		return "", false
	}
}
