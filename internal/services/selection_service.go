package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticket-admission/internal/notify"
	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/monitoring"
	"ticket-admission/utils"
)

// SelectionService handles seat selection for admitted users. Admission
// is checked against the Redis entered set first and falls back to the
// durable store when Redis is unavailable. Contention on a seat is
// resolved by the version check in the store: exactly one of N
// concurrent selectors wins, the rest get a conflict error.
type SelectionService struct {
	queue    *QueueStore
	entries  QueueEntryStore
	seats    SeatStore
	tickets  TicketStore
	notifier notify.Notifier
	monitor  *monitoring.Monitor
}

func NewSelectionService(
	queue *QueueStore,
	entries QueueEntryStore,
	seats SeatStore,
	tickets TicketStore,
	notifier notify.Notifier,
	monitor *monitoring.Monitor,
) *SelectionService {
	return &SelectionService{
		queue:    queue,
		entries:  entries,
		seats:    seats,
		tickets:  tickets,
		notifier: notifier,
		monitor:  monitor,
	}
}

// Select reserves a seat for an entered user and opens a draft ticket
// for it. One user holds at most one draft at a time.
func (s *SelectionService) Select(ctx context.Context, eventID, seatID, userID string) (*models.Ticket, error) {
	entered, err := s.isEntered(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !entered {
		return nil, status.ErrNotInQueue
	}

	hasDraft, err := s.tickets.HasActiveDraft(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("draft lookup: %w", err)
	}
	if hasDraft {
		return nil, status.ErrSeatAlreadyHeld
	}

	seat, err := s.seats.Find(ctx, eventID, seatID)
	if err != nil {
		return nil, err
	}
	if seat.Status != models.SeatAvailable {
		return nil, status.ErrSeatUnavailable
	}

	won, err := s.seats.ReserveCAS(ctx, seatID, seat.Version, userID)
	if err != nil {
		return nil, fmt.Errorf("reserve seat: %w", err)
	}
	if !won {
		s.monitor.TrackSeatConflict(eventID)
		return nil, status.ErrSeatConcurrencyConflict
	}

	ticketID, err := utils.GenerateCode(8)
	if err != nil {
		return nil, fmt.Errorf("generate ticket id: %w", err)
	}

	ticket, err := s.tickets.CreateDraft(ctx, ticketID, eventID, seatID, userID)
	if err != nil {
		// The reservation is orphaned until the draft sweep releases it.
		slog.Error("draft creation failed after reservation",
			"event_id", eventID, "seat_id", seatID, "user_id", userID, "error", err)
		if _, releaseErr := s.seats.Release(ctx, seatID); releaseErr != nil {
			slog.Error("reservation rollback failed",
				"seat_id", seatID, "error", releaseErr)
		}
		return nil, fmt.Errorf("create draft ticket: %w", err)
	}

	seat.Status = models.SeatReserved
	seat.Version++
	seat.ReservedBy = userID
	s.notifier.Publish(ctx, models.SeatStatusChanged(*seat))

	return ticket, nil
}

// ListSeats returns the event's seat map for the selection screen.
func (s *SelectionService) ListSeats(ctx context.Context, eventID string) ([]models.Seat, error) {
	return s.seats.ListByEvent(ctx, eventID)
}

// isEntered trusts a positive Redis answer but never a negative one: a
// lost projection must not lock out legitimately entered users, so
// absence defers to the durable record.
func (s *SelectionService) isEntered(ctx context.Context, eventID, userID string) (bool, error) {
	entered, err := s.queue.IsEntered(ctx, eventID, userID)
	if err == nil && entered {
		return true, nil
	}
	if err != nil {
		slog.Warn("entered check falling back to durable store",
			"event_id", eventID, "user_id", userID, "error", err)
	}

	entered, err = s.entries.IsEntered(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("entered lookup: %w", err)
	}
	return entered, nil
}
