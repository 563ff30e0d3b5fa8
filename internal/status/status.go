package status

import "errors"

// Validation errors: rejected synchronously, no state touched.
var (
	ErrEmptyCandidateSet  = errors.New("queue: candidate list is empty")
	ErrQueueAlreadyExists = errors.New("queue: queue already exists for event")
	ErrNotFoundQueueEntry = errors.New("queue: queue entry not found")
	ErrNotWaiting         = errors.New("queue: entry is not in waiting status")
	ErrNotEntered         = errors.New("queue: entry is not in entered status")
	ErrAlreadyExpired     = errors.New("queue: entry already expired")
	ErrAlreadyCompleted   = errors.New("queue: entry already completed")
	ErrNotInQueue         = errors.New("selection: user is not entered for this event")
	ErrSeatAlreadyHeld    = errors.New("selection: user already holds a seat for this event")
	ErrNotFoundSeat       = errors.New("seat: seat not found")
	ErrNotFoundEvent      = errors.New("event: event not found")
	ErrNotFoundTicket     = errors.New("ticket: ticket not found")
)

// Concurrency-conflict errors: the caller should pick a different
// target, not blind-retry the same one.
var (
	ErrSeatUnavailable         = errors.New("seat: seat is not available")
	ErrSeatConcurrencyConflict = errors.New("seat: concurrent reservation won by another user")
)

// Backend-degradation errors: "the system is busy", not "you are not
// allowed". Surfaced by the fast-fail cache path.
var (
	ErrTemporarilyUnavailable = errors.New("cache: backend temporarily unavailable")
	ErrNotFoundSession        = errors.New("session: no active session")
	ErrInvalidSession         = errors.New("session: session is not valid")
)
