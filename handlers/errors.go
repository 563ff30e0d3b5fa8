package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"ticket-admission/internal/status"
)

// apiError maps domain sentinels onto HTTP responses. Anything
// unrecognized is a 500 with the detail withheld from the client.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrNotFoundQueueEntry),
		errors.Is(err, status.ErrNotFoundSeat),
		errors.Is(err, status.ErrNotFoundEvent),
		errors.Is(err, status.ErrNotFoundTicket),
		errors.Is(err, status.ErrNotFoundSession):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrEmptyCandidateSet),
		errors.Is(err, status.ErrQueueAlreadyExists),
		errors.Is(err, status.ErrNotWaiting),
		errors.Is(err, status.ErrNotEntered),
		errors.Is(err, status.ErrAlreadyExpired),
		errors.Is(err, status.ErrAlreadyCompleted),
		errors.Is(err, status.ErrSeatAlreadyHeld):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrNotInQueue),
		errors.Is(err, status.ErrInvalidSession):
		return apis.NewForbiddenError(err.Error(), nil)

	case errors.Is(err, status.ErrSeatUnavailable),
		errors.Is(err, status.ErrSeatConcurrencyConflict):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	case errors.Is(err, status.ErrTemporarilyUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, err.Error(), nil)
	}

	return apis.NewApiError(http.StatusInternalServerError, "something went wrong", nil)
}
