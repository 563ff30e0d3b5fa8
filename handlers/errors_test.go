package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-admission/internal/status"
)

func TestAPIErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{status.ErrNotFoundQueueEntry, http.StatusNotFound},
		{status.ErrNotFoundSeat, http.StatusNotFound},
		{status.ErrEmptyCandidateSet, http.StatusBadRequest},
		{status.ErrQueueAlreadyExists, http.StatusBadRequest},
		{status.ErrSeatAlreadyHeld, http.StatusBadRequest},
		{status.ErrNotInQueue, http.StatusForbidden},
		{status.ErrInvalidSession, http.StatusForbidden},
		{status.ErrSeatUnavailable, http.StatusConflict},
		{status.ErrSeatConcurrencyConflict, http.StatusConflict},
		{status.ErrTemporarilyUnavailable, http.StatusServiceUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		var apiErr *router.ApiError
		require.ErrorAs(t, apiError(tc.err), &apiErr, "mapping %v", tc.err)
		assert.Equal(t, tc.code, apiErr.Status, "mapping %v", tc.err)
	}
}

func TestAPIErrorHidesInternalDetail(t *testing.T) {
	var apiErr *router.ApiError
	require.ErrorAs(t, apiError(errors.New("pq: connection reset")), &apiErr)
	assert.NotContains(t, apiErr.Message, "connection reset")
}
