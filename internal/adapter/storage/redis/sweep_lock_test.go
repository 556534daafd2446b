package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepLock_Acquire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(mr)
	defer client.Close()

	lock := NewSweepLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "2026-03-10", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "first caller gets the lock")

	ok, err = lock.Acquire(ctx, "2026-03-10", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second caller for the same run is refused")

	ok, err = lock.Acquire(ctx, "2026-03-11", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "a different run key is independent")

	assert.True(t, mr.Exists("bcs:sweep:2026-03-10"))
}

func TestSweepLock_ExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(mr)
	defer client.Close()

	lock := NewSweepLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "run", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = lock.Acquire(ctx, "run", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be taken again")
}

func TestSweepLock_Release(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(mr)
	defer client.Close()

	lock := NewSweepLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "2026-03-10", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "2026-03-10"))
	assert.False(t, mr.Exists("bcs:sweep:2026-03-10"))

	ok, err = lock.Acquire(ctx, "2026-03-10", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be claimed again")

	assert.NoError(t, lock.Release(ctx, "never-claimed"))
}

func TestSweepLock_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newTestClient(mr)
	defer client.Close()
	mr.Close()

	_, err := NewSweepLock(client).Acquire(context.Background(), "run", time.Minute)
	assert.Error(t, err)
}
