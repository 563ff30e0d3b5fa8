package services

import (
	"context"
	"sync"
	"time"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

// In-memory store fakes shared by the service tests.

type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[string]*models.QueueEntry // eventID|userID

	failMarkEntered map[string]bool // userIDs whose MarkEntered fails
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{
		entries:         map[string]*models.QueueEntry{},
		failMarkEntered: map[string]bool{},
	}
}

func entryKey(eventID, userID string) string { return eventID + "|" + userID }

func (f *fakeEntryStore) CountByEvent(ctx context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (f *fakeEntryStore) CountByStatus(ctx context.Context, eventID string, st models.QueueEntryStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.EventID == eventID && e.Status == st {
			n++
		}
	}
	return n, nil
}

func (f *fakeEntryStore) CountWaitingAhead(ctx context.Context, eventID string, rank int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.EventID == eventID && e.Status == models.QueueWaiting && e.Rank < rank {
			n++
		}
	}
	return n, nil
}

func (f *fakeEntryStore) BulkInsertWaiting(ctx context.Context, eventID string, orderedUserIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, userID := range orderedUserIDs {
		f.entries[entryKey(eventID, userID)] = &models.QueueEntry{
			EventID: eventID,
			UserID:  userID,
			Rank:    i + 1,
			Status:  models.QueueWaiting,
		}
	}
	return nil
}

func (f *fakeEntryStore) Find(ctx context.Context, eventID, userID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryKey(eventID, userID)]
	if !ok {
		return nil, status.ErrNotFoundQueueEntry
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEntryStore) MarkEntered(ctx context.Context, eventID, userID string, enteredAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkEntered[userID] {
		return context.DeadlineExceeded
	}
	e, ok := f.entries[entryKey(eventID, userID)]
	if !ok {
		return status.ErrNotFoundQueueEntry
	}
	if e.Status != models.QueueWaiting {
		return status.ErrNotWaiting
	}
	e.Status = models.QueueEntered
	e.EnteredAt = &enteredAt
	e.ExpiresAt = &expiresAt
	return nil
}

func (f *fakeEntryStore) markStatus(eventID, userID string, from, to models.QueueEntryStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryKey(eventID, userID)]
	if !ok {
		return false, status.ErrNotFoundQueueEntry
	}
	if e.Status != from {
		return false, nil
	}
	e.Status = to
	return true, nil
}

func (f *fakeEntryStore) MarkExpired(ctx context.Context, eventID, userID string) (bool, error) {
	return f.markStatus(eventID, userID, models.QueueEntered, models.QueueExpired)
}

func (f *fakeEntryStore) MarkCompleted(ctx context.Context, eventID, userID string) (bool, error) {
	return f.markStatus(eventID, userID, models.QueueEntered, models.QueueCompleted)
}

func (f *fakeEntryStore) FindExpiredEntered(ctx context.Context, eventID string, now time.Time) ([]models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QueueEntry
	for _, e := range f.entries {
		if e.EventID == eventID && e.Status == models.QueueEntered && e.IsExpired(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) IsEntered(ctx context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryKey(eventID, userID)]
	return ok && e.Status == models.QueueEntered, nil
}

type fakeSeatStore struct {
	mu    sync.Mutex
	seats map[string]*models.Seat
}

func newFakeSeatStore(seats ...models.Seat) *fakeSeatStore {
	f := &fakeSeatStore{seats: map[string]*models.Seat{}}
	for i := range seats {
		s := seats[i]
		f.seats[s.ID] = &s
	}
	return f
}

func (f *fakeSeatStore) Find(ctx context.Context, eventID, seatID string) (*models.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.EventID != eventID {
		return nil, status.ErrNotFoundSeat
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeatStore) ListByEvent(ctx context.Context, eventID string) ([]models.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Seat
	for _, s := range f.seats {
		if s.EventID == eventID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSeatStore) ReserveCAS(ctx context.Context, seatID string, version int, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok {
		return false, nil
	}
	if s.Version != version || s.Status != models.SeatAvailable {
		return false, nil
	}
	s.Status = models.SeatReserved
	s.Version++
	s.ReservedBy = userID
	return true, nil
}

func (f *fakeSeatStore) MarkSold(ctx context.Context, seatID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.Status != models.SeatReserved {
		return false, nil
	}
	s.Status = models.SeatSold
	s.Version++
	return true, nil
}

func (f *fakeSeatStore) Release(ctx context.Context, seatID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.Status != models.SeatReserved {
		return false, nil
	}
	s.Status = models.SeatAvailable
	s.Version++
	s.ReservedBy = ""
	return true, nil
}

func (f *fakeSeatStore) FindReservedByUser(ctx context.Context, eventID, userID string) (*models.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.seats {
		if s.EventID == eventID && s.Status == models.SeatReserved && s.ReservedBy == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, status.ErrNotFoundSeat
}

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: map[string]*models.Ticket{}}
}

func (f *fakeTicketStore) CreateDraft(ctx context.Context, id, eventID, seatID, userID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &models.Ticket{
		ID:        id,
		EventID:   eventID,
		SeatID:    seatID,
		UserID:    userID,
		Status:    models.TicketDraft,
		CreatedAt: time.Now(),
	}
	f.tickets[id] = t
	cp := *t
	return &cp, nil
}

func (f *fakeTicketStore) HasActiveDraft(ctx context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.EventID == eventID && t.UserID == userID && t.Status == models.TicketDraft {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTicketStore) FindDraftByUser(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.EventID == eventID && t.UserID == userID && t.Status == models.TicketDraft {
			cp := *t
			return &cp, nil
		}
	}
	return nil, status.ErrNotFoundTicket
}

func (f *fakeTicketStore) FindExpiredDrafts(ctx context.Context, before time.Time) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.Status == models.TicketDraft && t.CreatedAt.Before(before) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTicketStore) markStatus(ticketID string, to models.TicketStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return false, status.ErrNotFoundTicket
	}
	if t.Status != models.TicketDraft {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (f *fakeTicketStore) MarkPaid(ctx context.Context, ticketID string) (bool, error) {
	return f.markStatus(ticketID, models.TicketPaid)
}

func (f *fakeTicketStore) MarkFailed(ctx context.Context, ticketID string) (bool, error) {
	return f.markStatus(ticketID, models.TicketFailed)
}

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func newFakeEventStore(events ...models.Event) *fakeEventStore {
	f := &fakeEventStore{events: map[string]*models.Event{}}
	for i := range events {
		e := events[i]
		f.events[e.ID] = &e
	}
	return f
}

func (f *fakeEventStore) Find(ctx context.Context, eventID string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, status.ErrNotFoundEvent
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventStore) ListByStatus(ctx context.Context, st models.EventStatus) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if e.Status == st {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) UpdateStatus(ctx context.Context, eventID string, st models.EventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return status.ErrNotFoundEvent
	}
	e.Status = st
	return nil
}

// recordingNotifier captures published notifications for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Publish(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) byType(t models.NotificationType) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
