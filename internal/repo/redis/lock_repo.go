package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockPrefix = "lock:"

var ErrLockNotHeld = errors.New("lock is not held by this owner")

var releaseLockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type LockRepo struct {
	client *goredis.Client
}

func NewLockRepo(client *goredis.Client) *LockRepo {
	return &LockRepo{client: client}
}

// TryAcquire returns an owner token when the lock was free, or "" when someone else holds it.
func (r *LockRepo) TryAcquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" || ttl <= 0 {
		return "", fmt.Errorf("invalid lock payload")
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (r *LockRepo) Release(ctx context.Context, name, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(name) == "" || token == "" {
		return fmt.Errorf("invalid lock payload")
	}

	released, err := releaseLockScript.Run(ctx, r.client, []string{lockPrefix + name}, token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	if released == 0 {
		return ErrLockNotHeld
	}
	return nil
}
