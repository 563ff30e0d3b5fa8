package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

type EventRepo struct {
	db dbx.Builder
}

func NewEventRepo(db dbx.Builder) *EventRepo {
	return &EventRepo{db: db}
}

type eventRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Venue      string         `db:"venue"`
	StartTime  types.DateTime `db:"start_time"`
	TotalSeats int            `db:"total_seats"`
	Status     string         `db:"status"`
}

func (r eventRow) toModel() models.Event {
	return models.Event{
		ID:         r.ID,
		Name:       r.Name,
		Venue:      r.Venue,
		StartTime:  r.StartTime.Time(),
		TotalSeats: r.TotalSeats,
		Status:     models.EventStatus(r.Status),
	}
}

func (r *EventRepo) Find(ctx context.Context, eventID string) (*models.Event, error) {
	var row eventRow
	err := r.db.Select("id", "name", "venue", "start_time", "total_seats", "status").
		From("events").
		Where(dbx.HashExp{"id": eventID}).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFoundEvent
	}
	if err != nil {
		return nil, err
	}
	event := row.toModel()
	return &event, nil
}

func (r *EventRepo) ListByStatus(ctx context.Context, st models.EventStatus) ([]models.Event, error) {
	var rows []eventRow
	err := r.db.Select("id", "name", "venue", "start_time", "total_seats", "status").
		From("events").
		Where(dbx.HashExp{"status": string(st)}).
		All(&rows)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toModel()
	}
	return events, nil
}

func (r *EventRepo) UpdateStatus(ctx context.Context, eventID string, st models.EventStatus) error {
	res, err := r.db.Update("events",
		dbx.Params{
			"status":  string(st),
			"updated": types.NowDateTime(),
		},
		dbx.HashExp{"id": eventID}).Execute()
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.ErrNotFoundEvent
	}
	return nil
}
