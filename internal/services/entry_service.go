package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticket-admission/config"
	"ticket-admission/internal/notify"
	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/monitoring"
)

// EntryService drives every queue-entry state transition after the
// shuffle: waiting -> entered (promotion), entered -> expired (sweep)
// and entered -> completed (payment). All operations are idempotent and
// safe to retry; the scheduler runs them on a fixed cadence.
type EntryService struct {
	queue    *QueueStore
	entries  QueueEntryStore
	seats    SeatStore
	tickets  TicketStore
	notifier notify.Notifier
	monitor  *monitoring.Monitor
	cfg      *config.Config

	now func() time.Time
}

func NewEntryService(
	queue *QueueStore,
	entries QueueEntryStore,
	seats SeatStore,
	tickets TicketStore,
	notifier notify.Notifier,
	monitor *monitoring.Monitor,
	cfg *config.Config,
) *EntryService {
	return &EntryService{
		queue:    queue,
		entries:  entries,
		seats:    seats,
		tickets:  tickets,
		notifier: notifier,
		monitor:  monitor,
		cfg:      cfg,
		now:      time.Now,
	}
}

// PromoteResult reports one promotion batch.
type PromoteResult struct {
	Promoted int
	Failed   int
}

// SweepResult reports one expiry sweep.
type SweepResult struct {
	Expired       int
	SeatsReleased int
	Skipped       int
}

// Promote moves the lowest-rank waiting users into entered status, up
// to the free capacity under MaxEnteredLimit and at most
// PromoteBatchSize per call. A durable write failure for one user never
// aborts the rest of the batch: the failed user is restored to the
// waiting set at the original rank and retried next cycle.
func (s *EntryService) Promote(ctx context.Context, eventID string) (PromoteResult, error) {
	var result PromoteResult

	waiting, err := s.queue.TotalWaiting(ctx, eventID)
	if err != nil {
		return result, fmt.Errorf("waiting count: %w", err)
	}
	if waiting == 0 {
		return result, nil
	}

	entered, err := s.queue.TotalEntered(ctx, eventID)
	if err != nil {
		return result, fmt.Errorf("entered count: %w", err)
	}

	slots := s.cfg.MaxEnteredLimit - int(entered)
	if slots <= 0 {
		slog.Info("entered capacity reached",
			"event_id", eventID, "entered", entered, "limit", s.cfg.MaxEnteredLimit)
		return result, nil
	}

	batch := min(s.cfg.PromoteBatchSize, slots, int(waiting))

	promoted, err := s.queue.PromoteTopN(ctx, eventID, batch)
	if err != nil {
		return result, fmt.Errorf("promote top %d: %w", batch, err)
	}

	window := s.cfg.EntryWindow
	for _, p := range promoted {
		enteredAt := s.now()
		expiresAt := enteredAt.Add(window)

		if err := s.entries.MarkEntered(ctx, eventID, p.UserID, enteredAt, expiresAt); err != nil {
			result.Failed++
			s.monitor.TrackPromotion(eventID, "failed")
			slog.Error("promotion write failed, restoring user to waiting",
				"event_id", eventID, "user_id", p.UserID, "rank", p.Rank, "error", err)
			if restoreErr := s.queue.RestoreWaiting(ctx, eventID, p.UserID, p.Rank); restoreErr != nil {
				slog.Error("restore to waiting failed",
					"event_id", eventID, "user_id", p.UserID, "error", restoreErr)
			}
			continue
		}

		result.Promoted++
		s.monitor.TrackPromotion(eventID, "success")
		s.notifier.Publish(ctx, models.QueueEntryStatusChanged(models.QueueEntry{
			EventID:   eventID,
			UserID:    p.UserID,
			Status:    models.QueueEntered,
			EnteredAt: &enteredAt,
			ExpiresAt: &expiresAt,
		}, 0, 0))
	}

	s.publishDepths(ctx, eventID)
	return result, nil
}

// SweepExpired finds entered users whose window lapsed, marks them
// expired, releases any seat they were holding, and drops them from the
// entered set. Entries that stopped being entered between the query and
// the guarded write are skipped, not failed.
func (s *EntryService) SweepExpired(ctx context.Context, eventID string) (SweepResult, error) {
	var result SweepResult

	expired, err := s.entries.FindExpiredEntered(ctx, eventID, s.now())
	if err != nil {
		return result, fmt.Errorf("query expired entries: %w", err)
	}

	for _, entry := range expired {
		transitioned, err := s.entries.MarkExpired(ctx, eventID, entry.UserID)
		if err != nil {
			slog.Error("expire write failed",
				"event_id", eventID, "user_id", entry.UserID, "error", err)
			continue
		}
		if !transitioned {
			result.Skipped++
			continue
		}

		result.Expired++
		if s.releaseHeldSeat(ctx, eventID, entry.UserID) {
			result.SeatsReleased++
		}

		if err := s.queue.RemoveEntered(ctx, eventID, entry.UserID); err != nil {
			slog.Error("entered-set removal failed",
				"event_id", eventID, "user_id", entry.UserID, "error", err)
		}

		s.notifier.Publish(ctx, models.QueueEntryStatusChanged(models.QueueEntry{
			EventID: eventID,
			UserID:  entry.UserID,
			Status:  models.QueueExpired,
		}, 0, 0))
	}

	if result.Expired > 0 {
		s.monitor.TrackExpiration(eventID, result.Expired)
		s.publishDepths(ctx, eventID)
	}
	return result, nil
}

// CompletePayment is the terminal transition for a successful purchase:
// the draft ticket becomes paid, the seat becomes sold, and the entry
// leaves active tracking.
func (s *EntryService) CompletePayment(ctx context.Context, eventID, userID string) error {
	entry, err := s.entries.Find(ctx, eventID, userID)
	if err != nil {
		return err
	}

	switch entry.Status {
	case models.QueueCompleted:
		return status.ErrAlreadyCompleted
	case models.QueueExpired:
		return status.ErrAlreadyExpired
	case models.QueueEntered:
		// proceed
	default:
		return status.ErrNotEntered
	}

	ticket, err := s.tickets.FindDraftByUser(ctx, eventID, userID)
	if err != nil {
		return err
	}

	if _, err := s.tickets.MarkPaid(ctx, ticket.ID); err != nil {
		return fmt.Errorf("mark ticket paid: %w", err)
	}
	if _, err := s.seats.MarkSold(ctx, ticket.SeatID); err != nil {
		return fmt.Errorf("mark seat sold: %w", err)
	}

	if _, err := s.entries.MarkCompleted(ctx, eventID, userID); err != nil {
		return fmt.Errorf("complete queue entry: %w", err)
	}
	if err := s.queue.RemoveEntered(ctx, eventID, userID); err != nil {
		slog.Error("entered-set removal failed",
			"event_id", eventID, "user_id", userID, "error", err)
	}

	s.notifier.Publish(ctx, models.QueueEntryStatusChanged(models.QueueEntry{
		EventID: eventID,
		UserID:  userID,
		Status:  models.QueueCompleted,
	}, 0, 0))

	if seat, err := s.seats.Find(ctx, eventID, ticket.SeatID); err == nil {
		s.notifier.Publish(ctx, models.SeatStatusChanged(*seat))
	}
	return nil
}

// SweepExpiredTickets fails draft tickets older than the entry window
// and releases their seats. Owned by the same sweep cadence as entry
// expiry; per-ticket failures are isolated.
func (s *EntryService) SweepExpiredTickets(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.EntryWindow)
	drafts, err := s.tickets.FindExpiredDrafts(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query expired drafts: %w", err)
	}

	failed := 0
	for _, ticket := range drafts {
		transitioned, err := s.tickets.MarkFailed(ctx, ticket.ID)
		if err != nil {
			slog.Error("draft ticket expiry failed",
				"ticket_id", ticket.ID, "error", err)
			continue
		}
		if !transitioned {
			continue
		}
		failed++

		if _, err := s.seats.Release(ctx, ticket.SeatID); err != nil {
			slog.Error("seat release failed",
				"ticket_id", ticket.ID, "seat_id", ticket.SeatID, "error", err)
			continue
		}
		if seat, err := s.seats.Find(ctx, ticket.EventID, ticket.SeatID); err == nil {
			s.notifier.Publish(ctx, models.SeatStatusChanged(*seat))
		}
	}
	return failed, nil
}

// releaseHeldSeat returns the expired user's reserved seat (if any) to
// the available pool and fails the draft that held it.
func (s *EntryService) releaseHeldSeat(ctx context.Context, eventID, userID string) bool {
	seat, err := s.seats.FindReservedByUser(ctx, eventID, userID)
	if errors.Is(err, status.ErrNotFoundSeat) {
		return false
	}
	if err != nil {
		slog.Error("held-seat lookup failed",
			"event_id", eventID, "user_id", userID, "error", err)
		return false
	}

	if ticket, err := s.tickets.FindDraftByUser(ctx, eventID, userID); err == nil {
		if _, err := s.tickets.MarkFailed(ctx, ticket.ID); err != nil {
			slog.Error("draft ticket fail-out failed",
				"ticket_id", ticket.ID, "error", err)
		}
	}

	released, err := s.seats.Release(ctx, seat.ID)
	if err != nil {
		slog.Error("seat release failed",
			"event_id", eventID, "seat_id", seat.ID, "error", err)
		return false
	}
	if released {
		seat.Status = models.SeatAvailable
		seat.ReservedBy = ""
		s.notifier.Publish(ctx, models.SeatStatusChanged(*seat))
	}
	return released
}

func (s *EntryService) publishDepths(ctx context.Context, eventID string) {
	if waiting, err := s.queue.TotalWaiting(ctx, eventID); err == nil {
		s.monitor.SetQueueDepth(eventID, "waiting", waiting)
	}
	if entered, err := s.queue.TotalEntered(ctx, eventID); err == nil {
		s.monitor.SetQueueDepth(eventID, "entered", entered)
	}
}
