package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-admission/utils"
)

const lockKeyFmt = "scheduler:lock:%s"

// releaseScript releases a lease only for its owner. A lease released
// before its minimum hold is not deleted but trimmed down to the
// remaining minimum, so a fast run on one node cannot let a slow
// clock on another re-acquire inside the same tick.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
  return 0
end
local remaining = tonumber(ARGV[2]) - (tonumber(ARGV[3]) - tonumber(redis.call('PTTL', KEYS[1])))
if remaining > 0 then
  redis.call('PEXPIRE', KEYS[1], remaining)
  return 2
end
return redis.call('DEL', KEYS[1])
`)

// LeaseLock is a per-job distributed lease over Redis. At most one
// holder per job name at a time; the lease self-expires after maxHold
// so a crashed holder cannot wedge the job forever.
type LeaseLock struct {
	redis   *redis.Client
	minHold time.Duration
	maxHold time.Duration
}

func NewLeaseLock(redisClient *redis.Client, minHold, maxHold time.Duration) *LeaseLock {
	return &LeaseLock{
		redis:   redisClient,
		minHold: minHold,
		maxHold: maxHold,
	}
}

// Lease is a held lock. Release it when the run finishes.
type Lease struct {
	lock  *LeaseLock
	key   string
	owner string
}

// Acquire takes the lease for the named job. Returns (nil, nil) when
// another holder has it.
func (l *LeaseLock) Acquire(ctx context.Context, name string) (*Lease, error) {
	owner, err := utils.GenerateCode(8)
	if err != nil {
		return nil, fmt.Errorf("generate lease owner: %w", err)
	}

	key := fmt.Sprintf(lockKeyFmt, name)
	ok, err := l.redis.SetNX(ctx, key, owner, l.maxHold).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{lock: l, key: key, owner: owner}, nil
}

// Release gives the lease back, honoring the minimum hold. Safe to
// call after expiry; an expired or stolen lease is left alone.
func (le *Lease) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, le.lock.redis,
		[]string{le.key},
		le.owner,
		le.lock.minHold.Milliseconds(),
		le.lock.maxHold.Milliseconds(),
	).Result()
	return err
}
