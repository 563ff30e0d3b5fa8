package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

// ReadService serves the polled queue-status view and the admin
// statistics. Rank and depth come from the Redis projection when it is
// healthy and from the durable store when it is not, so status polling
// keeps working through a cache outage.
type ReadService struct {
	queue   *QueueStore
	entries QueueEntryStore
}

func NewReadService(queue *QueueStore, entries QueueEntryStore) *ReadService {
	return &ReadService{queue: queue, entries: entries}
}

// GetQueueStatus returns one user's position in one event's queue.
// Waiting users get a rank, the count ahead of them and a coarse
// wait estimate; terminal statuses are reported as-is.
func (s *ReadService) GetQueueStatus(ctx context.Context, eventID, userID string) (*models.QueueStatus, error) {
	entry, err := s.entries.Find(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	result := &models.QueueStatus{
		EventID: eventID,
		UserID:  userID,
		Status:  entry.Status,
	}

	switch entry.Status {
	case models.QueueWaiting:
		s.fillWaitingPosition(ctx, entry, result)
	case models.QueueEntered:
		result.EnteredAt = entry.EnteredAt
		result.ExpiresAt = entry.ExpiresAt
	}

	return result, nil
}

// IsUserEntered reports whether the user currently holds an entered
// slot. A positive Redis answer is trusted; a negative one or a Redis
// failure defers to the durable record rather than denying the user.
func (s *ReadService) IsUserEntered(ctx context.Context, eventID, userID string) (bool, error) {
	entered, err := s.queue.IsEntered(ctx, eventID, userID)
	if err == nil && entered {
		return true, nil
	}
	if err != nil {
		slog.Warn("entered check falling back to durable store",
			"event_id", eventID, "user_id", userID, "error", err)
	}
	return s.entries.IsEntered(ctx, eventID, userID)
}

// Statistics returns the per-status entry counts for an event.
func (s *ReadService) Statistics(ctx context.Context, eventID string) (*models.QueueStatistics, error) {
	total, err := s.entries.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("total count: %w", err)
	}

	stats := &models.QueueStatistics{EventID: eventID, Total: total}

	counts := []struct {
		st  models.QueueEntryStatus
		dst *int
	}{
		{models.QueueWaiting, &stats.Waiting},
		{models.QueueEntered, &stats.Entered},
		{models.QueueExpired, &stats.Expired},
		{models.QueueCompleted, &stats.Completed},
	}
	for _, c := range counts {
		n, err := s.entries.CountByStatus(ctx, eventID, c.st)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.st, err)
		}
		*c.dst = n
	}

	return stats, nil
}

func (s *ReadService) fillWaitingPosition(ctx context.Context, entry *models.QueueEntry, result *models.QueueStatus) {
	rank, ahead, total, err := s.waitingPosition(ctx, entry)
	if err != nil {
		slog.Error("waiting position unavailable",
			"event_id", entry.EventID, "user_id", entry.UserID, "error", err)
		result.Rank = entry.Rank
		return
	}

	result.Rank = rank
	result.WaitingAhead = ahead
	result.TotalWaiting = total

	if ahead == 0 {
		result.EstimatedWait = 1
		result.Progress = 99
		return
	}
	result.EstimatedWait = 2 * ahead
	if total > 0 {
		result.Progress = (total - ahead) * 100 / total
	}
}

// waitingPosition reads rank, ahead-count and waiting depth from Redis,
// falling back to the durable records when the projection is gone.
func (s *ReadService) waitingPosition(ctx context.Context, entry *models.QueueEntry) (rank, ahead, total int, err error) {
	rank, redisErr := s.queue.Rank(ctx, entry.EventID, entry.UserID)
	if redisErr == nil {
		aheadCount, aheadErr := s.queue.AheadCount(ctx, entry.EventID, entry.UserID)
		waiting, waitingErr := s.queue.TotalWaiting(ctx, entry.EventID)
		if aheadErr == nil && waitingErr == nil {
			return rank, aheadCount, int(waiting), nil
		}
		redisErr = errors.Join(aheadErr, waitingErr)
	}
	if !errors.Is(redisErr, status.ErrNotFoundQueueEntry) {
		slog.Warn("queue position falling back to durable store",
			"event_id", entry.EventID, "user_id", entry.UserID, "error", redisErr)
	}

	ahead, err = s.entries.CountWaitingAhead(ctx, entry.EventID, entry.Rank)
	if err != nil {
		return 0, 0, 0, err
	}
	total, err = s.entries.CountByStatus(ctx, entry.EventID, models.QueueWaiting)
	if err != nil {
		return 0, 0, 0, err
	}
	return entry.Rank, ahead, total, nil
}
