package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

// TicketRepo holds the draft reservations created by seat selection.
type TicketRepo struct {
	db dbx.Builder
}

func NewTicketRepo(db dbx.Builder) *TicketRepo {
	return &TicketRepo{db: db}
}

type ticketRow struct {
	ID      string         `db:"id"`
	EventID string         `db:"event_id"`
	SeatID  string         `db:"seat_id"`
	UserID  string         `db:"user_id"`
	Status  string         `db:"status"`
	Created types.DateTime `db:"created"`
}

func (r ticketRow) toModel() models.Ticket {
	return models.Ticket{
		ID:        r.ID,
		EventID:   r.EventID,
		SeatID:    r.SeatID,
		UserID:    r.UserID,
		Status:    models.TicketStatus(r.Status),
		CreatedAt: r.Created.Time(),
	}
}

func (r *TicketRepo) CreateDraft(ctx context.Context, id, eventID, seatID, userID string) (*models.Ticket, error) {
	now := types.NowDateTime()
	_, err := r.db.Insert("tickets", dbx.Params{
		"id":       id,
		"event_id": eventID,
		"seat_id":  seatID,
		"user_id":  userID,
		"status":   string(models.TicketDraft),
		"created":  now,
		"updated":  now,
	}).Execute()
	if err != nil {
		return nil, err
	}
	return &models.Ticket{
		ID:        id,
		EventID:   eventID,
		SeatID:    seatID,
		UserID:    userID,
		Status:    models.TicketDraft,
		CreatedAt: now.Time(),
	}, nil
}

func (r *TicketRepo) HasActiveDraft(ctx context.Context, eventID, userID string) (bool, error) {
	var count int
	err := r.db.Select("COUNT(*)").
		From("tickets").
		Where(dbx.HashExp{
			"event_id": eventID,
			"user_id":  userID,
			"status":   string(models.TicketDraft),
		}).
		Row(&count)
	return count > 0, err
}

func (r *TicketRepo) FindDraftByUser(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	var row ticketRow
	err := r.db.Select("id", "event_id", "seat_id", "user_id", "status", "created").
		From("tickets").
		Where(dbx.HashExp{
			"event_id": eventID,
			"user_id":  userID,
			"status":   string(models.TicketDraft),
		}).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFoundTicket
	}
	if err != nil {
		return nil, err
	}
	ticket := row.toModel()
	return &ticket, nil
}

// FindExpiredDrafts returns drafts created before the cutoff; the
// ticket sweep fails them and releases their seats.
func (r *TicketRepo) FindExpiredDrafts(ctx context.Context, before time.Time) ([]models.Ticket, error) {
	var rows []ticketRow
	err := r.db.Select("id", "event_id", "seat_id", "user_id", "status", "created").
		From("tickets").
		Where(dbx.NewExp("status={:status} AND created < {:before}", dbx.Params{
			"status": string(models.TicketDraft),
			"before": before.UTC().Format(types.DefaultDateLayout),
		})).
		All(&rows)
	if err != nil {
		return nil, err
	}

	tickets := make([]models.Ticket, len(rows))
	for i, row := range rows {
		tickets[i] = row.toModel()
	}
	return tickets, nil
}

func (r *TicketRepo) MarkPaid(ctx context.Context, ticketID string) (bool, error) {
	return r.guardedTransition(ticketID, models.TicketDraft, models.TicketPaid)
}

func (r *TicketRepo) MarkFailed(ctx context.Context, ticketID string) (bool, error) {
	return r.guardedTransition(ticketID, models.TicketDraft, models.TicketFailed)
}

func (r *TicketRepo) guardedTransition(ticketID string, from, to models.TicketStatus) (bool, error) {
	res, err := r.db.Update("tickets",
		dbx.Params{
			"status":  string(to),
			"updated": types.NowDateTime(),
		},
		dbx.NewExp("id={:id} AND status={:status}", dbx.Params{
			"id":     ticketID,
			"status": string(from),
		})).Execute()
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
