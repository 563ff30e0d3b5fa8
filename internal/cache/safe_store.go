package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-admission/monitoring"
	"ticket-admission/utils"
)

// SafeStore wraps cache writes and evictions behind a circuit breaker
// so a dying Redis never drags the login and logout paths down with
// it. Reads return the zero value while the breaker is open; writes
// and deletes become no-ops. The session flow is built so that a lost
// eviction only delays invalidation until the cache entry's TTL.
//
// After a trip the breaker is consulted again only once per cool-down
// window; within the window every call short-circuits without touching
// Redis at all.
type SafeStore struct {
	redis    *redis.Client
	breaker  *utils.CircuitBreaker
	monitor  *monitoring.Monitor
	coolDown time.Duration

	// unix nanos of the last observed failure
	lastFailure atomic.Int64
}

func NewSafeStore(redisClient *redis.Client, monitor *monitoring.Monitor, coolDown time.Duration) *SafeStore {
	breaker := utils.NewCircuitBreaker(utils.Settings{
		Name:                "session-cache",
		MaxHalfOpenRequests: 1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		FailureThreshold:    3,
	})
	return &SafeStore{
		redis:    redisClient,
		breaker:  breaker,
		monitor:  monitor,
		coolDown: coolDown,
	}
}

// Get returns ("", false) on any failure or open breaker. Callers must
// treat that as a miss, not an error.
func (s *SafeStore) Get(ctx context.Context, key string) (string, bool) {
	if s.coolingDown() {
		return "", false
	}

	val, err := s.breaker.Execute(func() (any, error) {
		v, err := s.redis.Get(ctx, key).Result()
		if err == redis.Nil {
			return "", nil
		}
		return v, err
	})
	if err != nil {
		s.recordFailure("get", err)
		return "", false
	}

	str, _ := val.(string)
	if str == "" {
		return "", false
	}
	return str, true
}

// Set is best effort. A dropped write means the next read misses.
func (s *SafeStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if s.coolingDown() {
		return
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.redis.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		s.recordFailure("set", err)
	}
}

// Delete is best effort. A dropped eviction is bounded by the entry's
// TTL.
func (s *SafeStore) Delete(ctx context.Context, key string) {
	if s.coolingDown() {
		return
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.redis.Del(ctx, key).Err()
	})
	if err != nil {
		s.recordFailure("delete", err)
	}
}

// IsHealthy reports whether the store is currently accepting traffic.
func (s *SafeStore) IsHealthy() bool {
	return !s.coolingDown() && s.breaker.State() != utils.StateOpen
}

func (s *SafeStore) coolingDown() bool {
	last := s.lastFailure.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) < s.coolDown
}

func (s *SafeStore) recordFailure(operation string, err error) {
	s.lastFailure.Store(time.Now().UnixNano())
	s.monitor.TrackCacheFailure("circuit_breaker", operation)
	if errors.Is(err, utils.ErrCircuitOpen) {
		return
	}
	slog.Warn("safe cache store operation failed", "operation", operation, "error", err)
}
