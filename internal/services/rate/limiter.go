package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const generateWindow = time.Minute

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Limiter struct {
	store     WindowStore
	perMinute int
}

// NewLimiter returns a limiter that allows everything when perMinute is zero.
func NewLimiter(store WindowStore, perMinute int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}

	return &Limiter{
		store:     store,
		perMinute: perMinute,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil && l.perMinute > 0
}

func (l *Limiter) AllowGenerate(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	if userID == uuid.Nil {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if !l.Enabled() {
		return 0, true, nil
	}

	count, ttl, err := l.store.IncrementWindow(ctx, generateKey(userID), generateWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perMinute) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func generateKey(userID uuid.UUID) string {
	return "rate:queue_generate:min:" + userID.String()
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
