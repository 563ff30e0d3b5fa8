package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

func TestShuffleAssignsUniqueContiguousRanks(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueueStore(t)
	entries := newFakeEntryStore()
	events := newFakeEventStore(models.Event{ID: "evt1", Status: models.EventPublished})

	svc := NewShuffleService(queue, entries, events, &recordingNotifier{})

	candidates := seedUsers(101)
	require.NoError(t, svc.Shuffle(ctx, "evt1", candidates))

	seen := map[int]string{}
	for _, userID := range candidates {
		entry, err := entries.Find(ctx, "evt1", userID)
		require.NoError(t, err)
		assert.Equal(t, models.QueueWaiting, entry.Status)
		assert.NotContains(t, seen, entry.Rank, "rank assigned twice")
		seen[entry.Rank] = userID
		assert.GreaterOrEqual(t, entry.Rank, 1)
		assert.LessOrEqual(t, entry.Rank, len(candidates))
	}
	assert.Len(t, seen, len(candidates))

	// fast path mirrors the durable ranking
	for rank, userID := range seen {
		got, err := queue.Rank(ctx, "evt1", userID)
		require.NoError(t, err)
		assert.Equal(t, rank, got)
	}

	event, err := events.Find(ctx, "evt1")
	require.NoError(t, err)
	assert.Equal(t, models.EventQueueReady, event.Status)
}

func TestShuffleRejectsEmptyCandidates(t *testing.T) {
	svc := NewShuffleService(newTestQueueStore(t), newFakeEntryStore(),
		newFakeEventStore(models.Event{ID: "evt1"}), &recordingNotifier{})

	err := svc.Shuffle(context.Background(), "evt1", nil)
	assert.ErrorIs(t, err, status.ErrEmptyCandidateSet)
}

func TestShuffleRejectsUnknownEvent(t *testing.T) {
	svc := NewShuffleService(newTestQueueStore(t), newFakeEntryStore(),
		newFakeEventStore(), &recordingNotifier{})

	err := svc.Shuffle(context.Background(), "nope", []string{"alice"})
	assert.ErrorIs(t, err, status.ErrNotFoundEvent)
}

func TestShuffleRejectsSecondRun(t *testing.T) {
	ctx := context.Background()
	entries := newFakeEntryStore()
	events := newFakeEventStore(models.Event{ID: "evt1", Status: models.EventPublished})
	svc := NewShuffleService(newTestQueueStore(t), entries, events, &recordingNotifier{})

	require.NoError(t, svc.Shuffle(ctx, "evt1", []string{"alice", "bob"}))

	err := svc.Shuffle(ctx, "evt1", []string{"carol"})
	assert.ErrorIs(t, err, status.ErrQueueAlreadyExists)

	// the original ranking is untouched
	_, err = entries.Find(ctx, "evt1", "carol")
	assert.ErrorIs(t, err, status.ErrNotFoundQueueEntry)
}
