package enums

import "strings"

type SwipeAction string

const (
	SwipeActionLike      SwipeAction = "like"
	SwipeActionPass      SwipeAction = "pass"
	SwipeActionSuperLike SwipeAction = "superlike"
)

func ParseSwipeAction(raw string) (SwipeAction, bool) {
	value := SwipeAction(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case SwipeActionLike, SwipeActionPass, SwipeActionSuperLike:
		return value, true
	default:
		return "", false
	}
}
