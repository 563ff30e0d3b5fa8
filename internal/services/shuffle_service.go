package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticket-admission/internal/notify"
	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/utils"
)

// ShuffleService turns an unordered pre-registration list into a fair
// random ranking and seeds both representations of the waiting room.
// Shuffling happens exactly once per event; the ranking is immutable
// afterwards.
type ShuffleService struct {
	queue    *QueueStore
	entries  QueueEntryStore
	events   EventStore
	notifier notify.Notifier
}

func NewShuffleService(queue *QueueStore, entries QueueEntryStore, events EventStore, notifier notify.Notifier) *ShuffleService {
	return &ShuffleService{
		queue:    queue,
		entries:  entries,
		events:   events,
		notifier: notifier,
	}
}

// Shuffle assigns ranks 1..N by a CSPRNG Fisher-Yates permutation and
// persists them. The durable write is authoritative: a fast-path seed
// failure after a successful durable write still reports success and
// only logs the degradation, while a durable failure aborts the whole
// operation so no cache-only queue can exist.
func (s *ShuffleService) Shuffle(ctx context.Context, eventID string, candidateUserIDs []string) error {
	if len(candidateUserIDs) == 0 {
		return status.ErrEmptyCandidateSet
	}

	if _, err := s.events.Find(ctx, eventID); err != nil {
		return err
	}

	registered, err := s.entries.CountByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("count queue entries: %w", err)
	}
	if registered > 0 {
		return status.ErrQueueAlreadyExists
	}

	shuffled, err := utils.ShuffleStrings(candidateUserIDs)
	if err != nil {
		return fmt.Errorf("shuffle candidates: %w", err)
	}

	if err := s.entries.BulkInsertWaiting(ctx, eventID, shuffled); err != nil {
		return fmt.Errorf("persist ranking: %w", err)
	}

	if err := s.queue.Seed(ctx, eventID, shuffled); err != nil {
		// Durable store is the source of truth; rank reads fall back
		// to it until the projection is rebuilt.
		slog.Error("fast-path seed failed, serving ranks from durable store",
			"event_id", eventID, "error", err)
	}

	if err := s.events.UpdateStatus(ctx, eventID, models.EventQueueReady); err != nil {
		return fmt.Errorf("mark event queue ready: %w", err)
	}

	slog.Info("queue shuffled", "event_id", eventID, "candidates", len(shuffled))
	return nil
}
