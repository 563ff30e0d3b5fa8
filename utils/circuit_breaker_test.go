package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func failingCall() (interface{}, error) { return nil, errBackend }
func okCall() (interface{}, error)      { return "ok", nil }

func newTestBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(Settings{
		Name:                "test",
		MaxHalfOpenRequests: 1,
		Interval:            time.Minute,
		Timeout:             timeout,
		FailureThreshold:    3,
	})
}

func TestBreakerStaysClosedUnderThreshold(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(failingCall)
		assert.ErrorIs(t, err, errBackend)
	}
	assert.Equal(t, StateClosed, cb.State())

	// a success resets the consecutive counter
	_, err := cb.Execute(okCall)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		cb.Execute(failingCall)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		cb.Execute(failingCall)
	}
	assert.Equal(t, StateOpen, cb.State())

	_, err := cb.Execute(okCall)
	assert.ErrorIs(t, err, ErrCircuitOpen, "open breaker rejects without calling through")
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	cb := newTestBreaker(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Execute(failingCall)
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// a successful probe closes the breaker
	result, err := cb.Execute(okCall)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cb := newTestBreaker(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Execute(failingCall)
	}
	time.Sleep(30 * time.Millisecond)

	_, err := cb.Execute(failingCall)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateOpen, cb.State(), "one failed probe reopens the breaker")
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		assert.Panics(t, func() {
			cb.Execute(func() (interface{}, error) { panic("boom") })
		})
	}
	assert.Equal(t, StateOpen, cb.State())
}
