package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

var _ ports.SweepLock = (*SweepLock)(nil)

// SweepLock implements ports.SweepLock using Redis SET NX. A successful run
// keeps its key until the TTL lapses, so a run key completes at most once.
type SweepLock struct {
	client goredis.UniversalClient
	prefix string
}

// NewSweepLock creates a new Redis-backed sweep lock.
func NewSweepLock(client goredis.UniversalClient) *SweepLock {
	return &SweepLock{
		client: client,
		prefix: "bcs:sweep:",
	}
}

// Acquire returns true when this caller set the key first.
func (l *SweepLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis sweep lock: %w", err)
	}
	return result == "OK", nil
}

// Release deletes the key. Releasing an unclaimed key is not an error.
func (l *SweepLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis sweep unlock: %w", err)
	}
	return nil
}
