package cache

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/monitoring"
)

const sessionKeyPrefix = "active_session:"

// SessionStore is the durable fallback behind the cache.
type SessionStore interface {
	Find(ctx context.Context, userID string) (*models.ActiveSession, error)
}

// SessionCache fronts session validation with a fail-fast strategy: a
// Redis failure surfaces ErrTemporarilyUnavailable immediately instead
// of stampeding the durable store with every request's lookup. Only a
// clean cache miss falls through to the durable record.
//
// Entries hold "sessionID:tokenVersion" with a jittered TTL so a fleet
// of entries written together does not expire together.
type SessionCache struct {
	redis    *redis.Client
	sessions SessionStore
	monitor  *monitoring.Monitor

	ttl         time.Duration
	jitterRatio float64
}

func NewSessionCache(
	redisClient *redis.Client,
	sessions SessionStore,
	monitor *monitoring.Monitor,
	ttl time.Duration,
	jitterRatio float64,
) *SessionCache {
	return &SessionCache{
		redis:       redisClient,
		sessions:    sessions,
		monitor:     monitor,
		ttl:         ttl,
		jitterRatio: jitterRatio,
	}
}

// SessionKey is the cache key for a user's session credential. Shared
// with the eviction path in SafeStore callers.
func SessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// Get returns the user's cached session credential. On a cache miss the
// durable record is loaded and written back; on a cache failure the
// caller gets ErrTemporarilyUnavailable and must not fall back itself.
func (c *SessionCache) Get(ctx context.Context, userID string) (*models.ActiveSession, error) {
	val, err := c.redis.Get(ctx, SessionKey(userID)).Result()
	if err == nil {
		return parseSessionValue(userID, val)
	}
	if err != redis.Nil {
		c.monitor.TrackCacheFailure("fail_fast", "get")
		slog.Error("session cache read failed", "user_id", userID, "error", err)
		return nil, status.ErrTemporarilyUnavailable
	}

	session, err := c.sessions.Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Set(ctx, session)
	return session, nil
}

// Set writes the credential with a jittered TTL. Best effort: a write
// failure only costs the next read a durable lookup.
func (c *SessionCache) Set(ctx context.Context, session *models.ActiveSession) {
	val := formatSessionValue(session)
	if err := c.redis.Set(ctx, SessionKey(session.UserID), val, c.jitteredTTL()).Err(); err != nil {
		c.monitor.TrackCacheFailure("fail_fast", "set")
		slog.Warn("session cache write failed", "user_id", session.UserID, "error", err)
	}
}

// jitteredTTL spreads expiry uniformly across [ttl*(1-r), ttl*(1+r)].
func (c *SessionCache) jitteredTTL() time.Duration {
	if c.jitterRatio <= 0 {
		return c.ttl
	}
	spread := float64(c.ttl) * c.jitterRatio
	offset := (rand.Float64()*2 - 1) * spread
	return c.ttl + time.Duration(offset)
}

func formatSessionValue(session *models.ActiveSession) string {
	return fmt.Sprintf("%s:%d", session.SessionID, session.TokenVersion)
}

func parseSessionValue(userID, val string) (*models.ActiveSession, error) {
	idx := strings.LastIndex(val, ":")
	if idx < 0 {
		return nil, fmt.Errorf("malformed session cache value %q", val)
	}
	version, err := strconv.ParseInt(val[idx+1:], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed session cache value %q: %w", val, err)
	}
	return &models.ActiveSession{
		UserID:       userID,
		SessionID:    val[:idx],
		TokenVersion: version,
	}, nil
}
