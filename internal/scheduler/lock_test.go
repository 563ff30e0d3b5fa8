package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T, minHold, maxHold time.Duration) (*LeaseLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLeaseLock(client, minHold, maxHold), mr
}

func TestLeaseMutualExclusion(t *testing.T) {
	ctx := context.Background()
	lock, _ := newTestLock(t, 50*time.Millisecond, time.Minute)

	lease, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	require.NotNil(t, lease)

	second, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	assert.Nil(t, second, "lease must be exclusive per job name")

	// a different job name is independent
	other, err := lock.Acquire(ctx, "sweep")
	require.NoError(t, err)
	assert.NotNil(t, other)
}

func TestLeaseMinimumHold(t *testing.T) {
	ctx := context.Background()
	lock, _ := newTestLock(t, time.Minute, time.Hour)

	lease, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	require.NotNil(t, lease)

	// released instantly, but the minimum hold keeps it taken
	require.NoError(t, lease.Release(ctx))

	second, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	assert.Nil(t, second, "early release must honor the minimum hold")
}

func TestLeaseReleasedAfterMinimumHold(t *testing.T) {
	ctx := context.Background()
	lock, mr := newTestLock(t, 100*time.Millisecond, time.Hour)

	lease, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	require.NotNil(t, lease)

	// simulate the minimum hold elapsing before the release
	mr.FastForward(200 * time.Millisecond)
	require.NoError(t, lease.Release(ctx))

	second, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	assert.NotNil(t, second, "release after the minimum hold frees the lease")
}

func TestLeaseExpiresAfterMaxHold(t *testing.T) {
	ctx := context.Background()
	lock, mr := newTestLock(t, time.Millisecond, 50*time.Millisecond)

	lease, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	require.NotNil(t, lease)

	// crashed holder: the lease self-expires
	mr.FastForward(100 * time.Millisecond)

	second, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	assert.NotNil(t, second)

	// the stale lease must not release the new holder's lock
	require.NoError(t, lease.Release(ctx))
	third, err := lock.Acquire(ctx, "promote")
	require.NoError(t, err)
	assert.Nil(t, third, "stale owner must not free another holder's lease")
}
