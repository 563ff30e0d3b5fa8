package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-admission/internal/services"
)

// AdmissionHandler serves the waiting-room surface: the admin shuffle,
// the polled status view, statistics and payment completion.
type AdmissionHandler struct {
	shuffle *services.ShuffleService
	entry   *services.EntryService
	read    *services.ReadService
}

func NewAdmissionHandler(shuffle *services.ShuffleService, entry *services.EntryService, read *services.ReadService) *AdmissionHandler {
	return &AdmissionHandler{
		shuffle: shuffle,
		entry:   entry,
		read:    read,
	}
}

// ShuffleQueue ranks the event's pre-registered users. Admin only, one
// shot per event.
func (h *AdmissionHandler) ShuffleQueue(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("invalid request body", err)
	}

	if err := h.shuffle.Shuffle(e.Request.Context(), eventID, req.UserIDs); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":   eventID,
		"candidates": len(req.UserIDs),
	})
}

// GetQueueStatus is the client polling endpoint.
func (h *AdmissionHandler) GetQueueStatus(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	userID := e.Request.URL.Query().Get("user_id")
	if userID == "" {
		return apis.NewBadRequestError("user_id is required", nil)
	}

	queueStatus, err := h.read.GetQueueStatus(e.Request.Context(), eventID, userID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, queueStatus)
}

// GetStatistics is the admin per-event breakdown.
func (h *AdmissionHandler) GetStatistics(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	stats, err := h.read.Statistics(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, stats)
}

// CompletePayment finalizes the purchase for an entered user.
func (h *AdmissionHandler) CompletePayment(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("invalid request body", err)
	}
	if req.UserID == "" {
		return apis.NewBadRequestError("user_id is required", nil)
	}

	if err := h.entry.CompletePayment(e.Request.Context(), eventID, req.UserID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"user_id":  req.UserID,
		"status":   "completed",
	})
}
