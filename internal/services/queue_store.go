package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"ticket-admission/internal/status"
)

// Redis key shapes, one trio per event.
const (
	waitingKeyFmt      = "queue:waiting:%s"       // ZSET member=userID score=rank
	enteredKeyFmt      = "queue:entered:%s"       // SET of entered userIDs
	enteredCountKeyFmt = "queue:entered:count:%s" // monotonic entered counter
)

// promoteTopNScript pops up to N lowest-rank waiting members and moves
// them into the entered set in one atomic evaluation. The atomic
// remove-and-return is the sole concurrency guard for promotion: a
// second concurrent caller simply sees fewer (or zero) members left.
// Returns a flat [member, rank, member, rank, ...] list so a failed
// durable write can be restored at its original rank.
var promoteTopNScript = redis.NewScript(`
local users = redis.call('ZRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1, 'WITHSCORES')
if #users == 0 then
  return users
end
for i = 1, #users, 2 do
  redis.call('ZREM', KEYS[1], users[i])
  redis.call('SADD', KEYS[2], users[i])
end
redis.call('INCRBY', KEYS[3], #users / 2)
return users
`)

// Promoted is one user atomically moved out of the waiting set.
type Promoted struct {
	UserID string
	Rank   int
}

// QueueStore is the fast-path projection of the waiting room: a sorted
// set of waiting ranks, a set of entered members, and an entered
// counter. It is a rebuildable index over the durable queue_entries
// records, kept for O(log n) rank queries under load.
type QueueStore struct {
	Redis *redis.Client
}

func NewQueueStore(redisClient *redis.Client) *QueueStore {
	return &QueueStore{Redis: redisClient}
}

func (s *QueueStore) waitingKey(eventID string) string {
	return fmt.Sprintf(waitingKeyFmt, eventID)
}

func (s *QueueStore) enteredKey(eventID string) string {
	return fmt.Sprintf(enteredKeyFmt, eventID)
}

func (s *QueueStore) enteredCountKey(eventID string) string {
	return fmt.Sprintf(enteredCountKeyFmt, eventID)
}

// Seed mirrors a freshly shuffled ranking, rank = position+1. Refuses
// to overwrite an existing projection.
func (s *QueueStore) Seed(ctx context.Context, eventID string, orderedUserIDs []string) error {
	if len(orderedUserIDs) == 0 {
		return status.ErrEmptyCandidateSet
	}

	// Any surviving key means the event was seeded before, even when
	// every member has already been promoted out of the waiting set.
	existing, err := s.Redis.Exists(ctx,
		s.waitingKey(eventID),
		s.enteredKey(eventID),
		s.enteredCountKey(eventID),
	).Result()
	if err != nil {
		return err
	}
	if existing > 0 {
		return status.ErrQueueAlreadyExists
	}

	members := make([]redis.Z, len(orderedUserIDs))
	for i, userID := range orderedUserIDs {
		members[i] = redis.Z{Score: float64(i + 1), Member: userID}
	}
	return s.Redis.ZAdd(ctx, s.waitingKey(eventID), members...).Err()
}

// Rank returns the user's 1-based waiting rank.
func (s *QueueStore) Rank(ctx context.Context, eventID, userID string) (int, error) {
	rank, err := s.Redis.ZRank(ctx, s.waitingKey(eventID), userID).Result()
	if err == redis.Nil {
		return 0, status.ErrNotFoundQueueEntry
	}
	if err != nil {
		return 0, err
	}
	return int(rank) + 1, nil
}

// AheadCount returns how many users wait in front of this one.
func (s *QueueStore) AheadCount(ctx context.Context, eventID, userID string) (int, error) {
	rank, err := s.Rank(ctx, eventID, userID)
	if err != nil {
		return 0, err
	}
	return rank - 1, nil
}

// PromoteTopN atomically moves up to n lowest-rank waiting users into
// the entered set and returns them in rank order.
func (s *QueueStore) PromoteTopN(ctx context.Context, eventID string, n int) ([]Promoted, error) {
	if n <= 0 {
		return nil, nil
	}

	keys := []string{s.waitingKey(eventID), s.enteredKey(eventID), s.enteredCountKey(eventID)}
	raw, err := promoteTopNScript.Run(ctx, s.Redis, keys, n).StringSlice()
	if err != nil {
		return nil, err
	}

	promoted := make([]Promoted, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		rank, err := strconv.ParseFloat(raw[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse promoted rank %q: %w", raw[i+1], err)
		}
		promoted = append(promoted, Promoted{UserID: raw[i], Rank: int(rank)})
	}
	return promoted, nil
}

// RestoreWaiting undoes a single promotion after its durable write
// failed: the user returns to the waiting set at the original rank and
// is retried on the next scheduler cycle.
func (s *QueueStore) RestoreWaiting(ctx context.Context, eventID, userID string, rank int) error {
	pipe := s.Redis.TxPipeline()
	pipe.SRem(ctx, s.enteredKey(eventID), userID)
	pipe.ZAdd(ctx, s.waitingKey(eventID), redis.Z{Score: float64(rank), Member: userID})
	pipe.DecrBy(ctx, s.enteredCountKey(eventID), 1)
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveEntered drops a user from the entered set (expiry or payment
// completion). Never resurrects the user into the waiting set.
func (s *QueueStore) RemoveEntered(ctx context.Context, eventID, userID string) error {
	return s.Redis.SRem(ctx, s.enteredKey(eventID), userID).Err()
}

func (s *QueueStore) IsEntered(ctx context.Context, eventID, userID string) (bool, error) {
	return s.Redis.SIsMember(ctx, s.enteredKey(eventID), userID).Result()
}

func (s *QueueStore) TotalWaiting(ctx context.Context, eventID string) (int64, error) {
	return s.Redis.ZCard(ctx, s.waitingKey(eventID)).Result()
}

func (s *QueueStore) TotalEntered(ctx context.Context, eventID string) (int64, error) {
	return s.Redis.SCard(ctx, s.enteredKey(eventID)).Result()
}

// EnteredCount reads the monotonic counter of all promotions so far.
func (s *QueueStore) EnteredCount(ctx context.Context, eventID string) (int64, error) {
	val, err := s.Redis.Get(ctx, s.enteredCountKey(eventID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// Clear removes the whole projection for an event. The durable records
// stay; the projection can be reseeded from them.
func (s *QueueStore) Clear(ctx context.Context, eventID string) error {
	return s.Redis.Del(ctx,
		s.waitingKey(eventID),
		s.enteredKey(eventID),
		s.enteredCountKey(eventID),
	).Err()
}
