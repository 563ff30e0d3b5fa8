package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

// SeatRepo owns the seat ledger. Every status-changing write is a
// conditional UPDATE on (version, status): zero rows affected means the
// caller lost the race and must not overwrite.
type SeatRepo struct {
	db dbx.Builder
}

func NewSeatRepo(db dbx.Builder) *SeatRepo {
	return &SeatRepo{db: db}
}

type seatRow struct {
	ID         string  `db:"id"`
	EventID    string  `db:"event_id"`
	Code       string  `db:"code"`
	Grade      string  `db:"grade"`
	Price      float64 `db:"price"`
	Status     string  `db:"status"`
	Version    int     `db:"version"`
	ReservedBy string  `db:"reserved_by"`
}

func (r seatRow) toModel() models.Seat {
	return models.Seat{
		ID:         r.ID,
		EventID:    r.EventID,
		Code:       r.Code,
		Grade:      r.Grade,
		Price:      decimal.NewFromFloat(r.Price),
		Status:     models.SeatStatus(r.Status),
		Version:    r.Version,
		ReservedBy: r.ReservedBy,
	}
}

func (r *SeatRepo) Find(ctx context.Context, eventID, seatID string) (*models.Seat, error) {
	var row seatRow
	err := r.db.Select("id", "event_id", "code", "grade", "price", "status", "version", "reserved_by").
		From("seats").
		Where(dbx.HashExp{"event_id": eventID, "id": seatID}).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFoundSeat
	}
	if err != nil {
		return nil, err
	}
	seat := row.toModel()
	return &seat, nil
}

func (r *SeatRepo) ListByEvent(ctx context.Context, eventID string) ([]models.Seat, error) {
	var rows []seatRow
	err := r.db.Select("id", "event_id", "code", "grade", "price", "status", "version", "reserved_by").
		From("seats").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("grade ASC", "code ASC").
		All(&rows)
	if err != nil {
		return nil, err
	}

	seats := make([]models.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toModel()
	}
	return seats, nil
}

// ReserveCAS attempts available -> reserved, conditioned on the version
// the caller read. Returns false when another writer got there first.
func (r *SeatRepo) ReserveCAS(ctx context.Context, seatID string, version int, userID string) (bool, error) {
	res, err := r.db.Update("seats",
		dbx.Params{
			"status":      string(models.SeatReserved),
			"reserved_by": userID,
			"version":     version + 1,
			"updated":     types.NowDateTime(),
		},
		dbx.NewExp("id={:id} AND version={:version} AND status={:status}", dbx.Params{
			"id":      seatID,
			"version": version,
			"status":  string(models.SeatAvailable),
		})).Execute()
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkSold transitions reserved -> sold on payment completion.
func (r *SeatRepo) MarkSold(ctx context.Context, seatID string) (bool, error) {
	res, err := r.db.NewQuery(
		"UPDATE seats SET status={:to}, version=version+1, updated={:now} WHERE id={:id} AND status={:from}").
		Bind(dbx.Params{
			"to":   string(models.SeatSold),
			"now":  types.NowDateTime(),
			"id":   seatID,
			"from": string(models.SeatReserved),
		}).Execute()
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Release transitions reserved -> available when a hold lapses or a
// payment fails. Sold seats are never released here.
func (r *SeatRepo) Release(ctx context.Context, seatID string) (bool, error) {
	res, err := r.db.NewQuery(
		"UPDATE seats SET status={:to}, reserved_by='', version=version+1, updated={:now} WHERE id={:id} AND status={:from}").
		Bind(dbx.Params{
			"to":   string(models.SeatAvailable),
			"now":  types.NowDateTime(),
			"id":   seatID,
			"from": string(models.SeatReserved),
		}).Execute()
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SeatRepo) FindReservedByUser(ctx context.Context, eventID, userID string) (*models.Seat, error) {
	var row seatRow
	err := r.db.Select("id", "event_id", "code", "grade", "price", "status", "version", "reserved_by").
		From("seats").
		Where(dbx.HashExp{
			"event_id":    eventID,
			"reserved_by": userID,
			"status":      string(models.SeatReserved),
		}).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFoundSeat
	}
	if err != nil {
		return nil, err
	}
	seat := row.toModel()
	return &seat, nil
}
