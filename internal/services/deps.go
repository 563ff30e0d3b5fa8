package services

import (
	"context"
	"time"

	"ticket-admission/models"
)

// Durable-store ports consumed by the services. Implemented by
// internal/store over dbx; faked in tests.

type QueueEntryStore interface {
	CountByEvent(ctx context.Context, eventID string) (int, error)
	CountByStatus(ctx context.Context, eventID string, st models.QueueEntryStatus) (int, error)
	CountWaitingAhead(ctx context.Context, eventID string, rank int) (int, error)
	BulkInsertWaiting(ctx context.Context, eventID string, orderedUserIDs []string) error
	Find(ctx context.Context, eventID, userID string) (*models.QueueEntry, error)
	MarkEntered(ctx context.Context, eventID, userID string, enteredAt, expiresAt time.Time) error
	MarkExpired(ctx context.Context, eventID, userID string) (bool, error)
	MarkCompleted(ctx context.Context, eventID, userID string) (bool, error)
	FindExpiredEntered(ctx context.Context, eventID string, now time.Time) ([]models.QueueEntry, error)
	IsEntered(ctx context.Context, eventID, userID string) (bool, error)
}

type SeatStore interface {
	Find(ctx context.Context, eventID, seatID string) (*models.Seat, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Seat, error)
	ReserveCAS(ctx context.Context, seatID string, version int, userID string) (bool, error)
	MarkSold(ctx context.Context, seatID string) (bool, error)
	Release(ctx context.Context, seatID string) (bool, error)
	FindReservedByUser(ctx context.Context, eventID, userID string) (*models.Seat, error)
}

type TicketStore interface {
	CreateDraft(ctx context.Context, id, eventID, seatID, userID string) (*models.Ticket, error)
	HasActiveDraft(ctx context.Context, eventID, userID string) (bool, error)
	FindDraftByUser(ctx context.Context, eventID, userID string) (*models.Ticket, error)
	FindExpiredDrafts(ctx context.Context, before time.Time) ([]models.Ticket, error)
	MarkPaid(ctx context.Context, ticketID string) (bool, error)
	MarkFailed(ctx context.Context, ticketID string) (bool, error)
}

type EventStore interface {
	Find(ctx context.Context, eventID string) (*models.Event, error)
	ListByStatus(ctx context.Context, st models.EventStatus) ([]models.Event, error)
	UpdateStatus(ctx context.Context, eventID string, st models.EventStatus) error
}
