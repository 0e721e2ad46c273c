package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chronos/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	// DatasetWriteLockKey guards the clear-then-write save cycle
	DatasetWriteLockKey = "chronos:dataset-write-lock"

	lockTTL             = 30 * time.Second // expires a lock whose holder died
	lockAcquireTimeout  = 5 * time.Second
	lockExtendInterval  = 10 * time.Second
	maxLockHoldDuration = 2 * time.Minute
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("expire", KEYS[1], ARGV[2])
else
	return 0
end
`

// RedisDistributedLock SET NX lock with owner token and background renewal.
// A nil client runs in single-instance mode where TryLock always succeeds.
type RedisDistributedLock struct {
	client       *redis.Client
	lockKey      string
	lockValue    string // owner token, only the owner may release or renew
	ttl          time.Duration
	isHeld       bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool
	mu           sync.Mutex
}

// NewRedisDistributedLock creates a lock on lockKey (DatasetWriteLockKey when empty).
func NewRedisDistributedLock(client *redis.Client, lockKey string) *RedisDistributedLock {
	if lockKey == "" {
		lockKey = DatasetWriteLockKey
	}
	return &RedisDistributedLock{
		client:       client,
		lockKey:      lockKey,
		lockValue:    lockKey + "-" + uuid.NewString(),
		ttl:          lockTTL,
		stopRenew:    make(chan struct{}),
		renewStopped: true,
	}
}

// TryLock makes a single acquisition attempt.
func (l *RedisDistributedLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		l.mu.Lock()
		l.isHeld = true
		l.acquiredAt = time.Now()
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.lockKey, l.lockValue, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		logger.DebugCtx(ctx, "lock %s already held by another instance", l.lockKey)
		return false, nil
	}

	l.mu.Lock()
	l.isHeld = true
	l.acquiredAt = time.Now()
	// fresh channel per acquisition so TryLock/Unlock can cycle
	l.stopRenew = make(chan struct{})
	l.renewStopped = false
	stop := l.stopRenew
	l.mu.Unlock()

	go l.renewLock(stop)

	logger.DebugCtx(ctx, "lock %s acquired", l.lockKey)
	return true, nil
}

// Unlock releases the lock if this instance still owns it.
func (l *RedisDistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.isHeld && l.renewStopped {
		l.mu.Unlock()
		return nil
	}
	l.isHeld = false
	if l.client == nil {
		l.mu.Unlock()
		return nil
	}
	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	result, err := l.client.Eval(ctx, releaseScript, []string{l.lockKey}, l.lockValue).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.lockKey)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or held by another instance", l.lockKey)
	}
	return nil
}

// IsHeld reports whether this instance believes it owns the lock.
func (l *RedisDistributedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

func (l *RedisDistributedLock) renewLock(stop <-chan struct{}) {
	ticker := time.NewTicker(lockExtendInterval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			holdDuration := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if holdDuration > maxLockHoldDuration {
				logger.WarnCtx(ctx, "lock %s held for %.0f seconds, renewal stopped", l.lockKey, holdDuration.Seconds())
				l.markLost()
				return
			}

			result, err := l.client.Eval(ctx, renewScript, []string{l.lockKey}, l.lockValue, int(l.ttl.Seconds())).Int64()
			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.lockKey, err)
				l.markLost()
				return
			}
			if result == 0 {
				logger.WarnCtx(ctx, "lock %s renewal failed, lock lost", l.lockKey)
				l.markLost()
				return
			}
		}
	}
}

func (l *RedisDistributedLock) markLost() {
	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()
}
