package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestDistributedLock_SingleInstance(t *testing.T) {
	_, client := newTestClient(t)
	lock := NewRedisDistributedLock(client, "")
	ctx := context.Background()

	acquired, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsHeld())

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, lock.IsHeld())
	// second unlock is a no-op
	require.NoError(t, lock.Unlock(ctx))
}

func TestDistributedLock_MultipleInstances(t *testing.T) {
	_, client := newTestClient(t)
	lock1 := NewRedisDistributedLock(client, "test-lock-multi")
	lock2 := NewRedisDistributedLock(client, "test-lock-multi")
	ctx := context.Background()

	acquired1, err := lock1.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired1)

	acquired2, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, acquired2, "second instance must not acquire a held lock")

	// releasing a lock owned by someone else leaves it in place
	require.NoError(t, lock2.Unlock(ctx))
	acquired2, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, acquired2)

	require.NoError(t, lock1.Unlock(ctx))

	acquired2, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired2, "second instance acquires after the first releases")
	require.NoError(t, lock2.Unlock(ctx))
}

func TestDistributedLock_AutoExpire(t *testing.T) {
	mr, client := newTestClient(t)
	lock1 := NewRedisDistributedLock(client, "test-lock-expire")
	lock2 := NewRedisDistributedLock(client, "test-lock-expire")
	ctx := context.Background()

	acquired, err := lock1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	mr.FastForward(lockTTL + time.Second)

	acquired, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "lock of a dead holder expires")

	require.NoError(t, lock2.Unlock(ctx))
	require.NoError(t, lock1.Unlock(ctx))
}

func TestDistributedLock_NilClient(t *testing.T) {
	lock := NewRedisDistributedLock(nil, "")
	ctx := context.Background()

	acquired, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, lock.IsHeld())
}

func TestDistributedLock_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	mr.Close()

	lock := NewRedisDistributedLock(client, "")
	acquired, err := lock.TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, acquired)
}
