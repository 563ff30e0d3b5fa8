package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-admission/internal/services"
)

type SeatHandler struct {
	selection *services.SelectionService
}

func NewSeatHandler(selection *services.SelectionService) *SeatHandler {
	return &SeatHandler{selection: selection}
}

// ListSeats returns the event's seat map.
func (h *SeatHandler) ListSeats(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	seats, err := h.selection.ListSeats(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"seats":    seats,
	})
}

// SelectSeat reserves a seat for an entered user and opens the draft
// ticket. Concurrent selectors of the same seat race; the loser gets a
// 409 and should pick another seat.
func (h *SeatHandler) SelectSeat(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	seatID := e.Request.PathValue("seatId")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("invalid request body", err)
	}
	if req.UserID == "" {
		return apis.NewBadRequestError("user_id is required", nil)
	}

	ticket, err := h.selection.Select(e.Request.Context(), eventID, seatID, req.UserID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}
