package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const directionKeyPrefix = "presence:direction:"

// Cache entries outlive any operational day; presence queries fall back to
// the check-in log when the cache is cold.
const directionTTL = 24 * time.Hour

// DirectionCache mirrors each member's last scan direction in Redis so the
// TV display can poll without hitting the check-in log. Nil-safe: a nil
// cache (Redis not configured) turns every call into a no-op.
type DirectionCache struct {
	Rdb *redis.Client
}

func (c *DirectionCache) SetDirection(ctx context.Context, memberID uuid.UUID, direction string) error {
	if c == nil || c.Rdb == nil {
		return nil
	}
	return c.Rdb.Set(ctx, directionKeyPrefix+memberID.String(), direction, directionTTL).Err()
}

// GetDirection returns the cached direction, or "" on a miss.
func (c *DirectionCache) GetDirection(ctx context.Context, memberID uuid.UUID) (string, error) {
	if c == nil || c.Rdb == nil {
		return "", nil
	}
	val, err := c.Rdb.Get(ctx, directionKeyPrefix+memberID.String()).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
