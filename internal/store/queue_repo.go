package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/utils"
)

const bulkInsertChunk = 500

// QueueEntryRepo is the durable side of the waiting room: the source of
// truth that survives a cache wipe.
type QueueEntryRepo struct {
	db dbx.Builder
}

func NewQueueEntryRepo(db dbx.Builder) *QueueEntryRepo {
	return &QueueEntryRepo{db: db}
}

type queueEntryRow struct {
	ID        string         `db:"id"`
	EventID   string         `db:"event_id"`
	UserID    string         `db:"user_id"`
	Rank      int            `db:"queue_rank"`
	Status    string         `db:"status"`
	EnteredAt types.DateTime `db:"entered_at"`
	ExpiresAt types.DateTime `db:"expires_at"`
}

func (r queueEntryRow) toModel() models.QueueEntry {
	entry := models.QueueEntry{
		ID:      r.ID,
		EventID: r.EventID,
		UserID:  r.UserID,
		Rank:    r.Rank,
		Status:  models.QueueEntryStatus(r.Status),
	}
	if !r.EnteredAt.IsZero() {
		t := r.EnteredAt.Time()
		entry.EnteredAt = &t
	}
	if !r.ExpiresAt.IsZero() {
		t := r.ExpiresAt.Time()
		entry.ExpiresAt = &t
	}
	return entry
}

func (r *QueueEntryRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.Select("COUNT(*)").
		From("queue_entries").
		Where(dbx.HashExp{"event_id": eventID}).
		Row(&count)
	return count, err
}

func (r *QueueEntryRepo) CountByStatus(ctx context.Context, eventID string, st models.QueueEntryStatus) (int, error) {
	var count int
	err := r.db.Select("COUNT(*)").
		From("queue_entries").
		Where(dbx.HashExp{"event_id": eventID, "status": string(st)}).
		Row(&count)
	return count, err
}

func (r *QueueEntryRepo) CountWaitingAhead(ctx context.Context, eventID string, rank int) (int, error) {
	var count int
	err := r.db.Select("COUNT(*)").
		From("queue_entries").
		Where(dbx.NewExp("event_id={:event} AND status={:status} AND queue_rank < {:rank}", dbx.Params{
			"event":  eventID,
			"status": string(models.QueueWaiting),
			"rank":   rank,
		})).
		Row(&count)
	return count, err
}

// BulkInsertWaiting writes the shuffled ranking in rank order, rank =
// position+1. Each chunk is a single INSERT statement so a failure never
// leaves a half-written chunk.
func (r *QueueEntryRepo) BulkInsertWaiting(ctx context.Context, eventID string, orderedUserIDs []string) error {
	for start := 0; start < len(orderedUserIDs); start += bulkInsertChunk {
		end := start + bulkInsertChunk
		if end > len(orderedUserIDs) {
			end = len(orderedUserIDs)
		}
		if err := r.insertChunk(eventID, orderedUserIDs, start, end); err != nil {
			return fmt.Errorf("insert queue entries [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (r *QueueEntryRepo) insertChunk(eventID string, orderedUserIDs []string, start, end int) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO queue_entries (id, event_id, user_id, queue_rank, status, created, updated) VALUES ")

	params := dbx.Params{
		"event":  eventID,
		"status": string(models.QueueWaiting),
		"now":    types.NowDateTime(),
	}

	for i := start; i < end; i++ {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return err
		}
		if i > start {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "({:id%d}, {:event}, {:user%d}, {:rank%d}, {:status}, {:now}, {:now})", i, i, i)
		params[fmt.Sprintf("id%d", i)] = id
		params[fmt.Sprintf("user%d", i)] = orderedUserIDs[i]
		params[fmt.Sprintf("rank%d", i)] = i + 1
	}

	_, err := r.db.NewQuery(sb.String()).Bind(params).Execute()
	return err
}

func (r *QueueEntryRepo) Find(ctx context.Context, eventID, userID string) (*models.QueueEntry, error) {
	var row queueEntryRow
	err := r.db.Select("id", "event_id", "user_id", "queue_rank", "status", "entered_at", "expires_at").
		From("queue_entries").
		Where(dbx.HashExp{"event_id": eventID, "user_id": userID}).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFoundQueueEntry
	}
	if err != nil {
		return nil, err
	}
	entry := row.toModel()
	return &entry, nil
}

// MarkEntered transitions waiting -> entered. The status guard in the
// WHERE clause makes the write idempotent under concurrent promoters.
func (r *QueueEntryRepo) MarkEntered(ctx context.Context, eventID, userID string, enteredAt, expiresAt time.Time) error {
	res, err := r.db.Update("queue_entries",
		dbx.Params{
			"status":     string(models.QueueEntered),
			"entered_at": enteredAt.UTC().Format(types.DefaultDateLayout),
			"expires_at": expiresAt.UTC().Format(types.DefaultDateLayout),
			"updated":    types.NowDateTime(),
		},
		dbx.NewExp("event_id={:event} AND user_id={:user} AND status={:status}", dbx.Params{
			"event":  eventID,
			"user":   userID,
			"status": string(models.QueueWaiting),
		})).Execute()
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.ErrNotWaiting
	}
	return nil
}

// MarkExpired transitions entered -> expired. Returns false when the
// entry was not in entered status (already expired, completed, or the
// user paid between the query and the sweep).
func (r *QueueEntryRepo) MarkExpired(ctx context.Context, eventID, userID string) (bool, error) {
	return r.guardedTransition(eventID, userID, models.QueueEntered, models.QueueExpired)
}

// MarkCompleted transitions entered -> completed (payment done).
func (r *QueueEntryRepo) MarkCompleted(ctx context.Context, eventID, userID string) (bool, error) {
	return r.guardedTransition(eventID, userID, models.QueueEntered, models.QueueCompleted)
}

func (r *QueueEntryRepo) guardedTransition(eventID, userID string, from, to models.QueueEntryStatus) (bool, error) {
	res, err := r.db.Update("queue_entries",
		dbx.Params{
			"status":  string(to),
			"updated": types.NowDateTime(),
		},
		dbx.NewExp("event_id={:event} AND user_id={:user} AND status={:status}", dbx.Params{
			"event":  eventID,
			"user":   userID,
			"status": string(from),
		})).Execute()
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *QueueEntryRepo) FindExpiredEntered(ctx context.Context, eventID string, now time.Time) ([]models.QueueEntry, error) {
	var rows []queueEntryRow
	err := r.db.Select("id", "event_id", "user_id", "queue_rank", "status", "entered_at", "expires_at").
		From("queue_entries").
		Where(dbx.NewExp("event_id={:event} AND status={:status} AND expires_at < {:now}", dbx.Params{
			"event":  eventID,
			"status": string(models.QueueEntered),
			"now":    now.UTC().Format(types.DefaultDateLayout),
		})).
		OrderBy("queue_rank ASC").
		All(&rows)
	if err != nil {
		return nil, err
	}

	entries := make([]models.QueueEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toModel()
	}
	return entries, nil
}

func (r *QueueEntryRepo) IsEntered(ctx context.Context, eventID, userID string) (bool, error) {
	entry, err := r.Find(ctx, eventID, userID)
	if errors.Is(err, status.ErrNotFoundQueueEntry) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entry.Status == models.QueueEntered, nil
}
