package models

import "time"

type NotificationType string

const (
	NotifyQueueEntryStatusChanged NotificationType = "queue_entry_status_changed"
	NotifySeatStatusChanged       NotificationType = "seat_status_changed"
)

// Notification is the single tagged message shape emitted to the
// real-time fan-out collaborator. Consumers dispatch on Type and read
// the details from Payload instead of per-event message types.
type Notification struct {
	Type    NotificationType `json:"type"`
	EventID string           `json:"event_id"`
	UserID  string           `json:"user_id,omitempty"`
	Payload map[string]any   `json:"payload,omitempty"`
}

func QueueEntryStatusChanged(entry QueueEntry, rank, waitingAhead int) Notification {
	payload := map[string]any{
		"status": string(entry.Status),
	}
	if rank > 0 {
		payload["rank"] = rank
		payload["waiting_ahead"] = waitingAhead
	}
	if entry.EnteredAt != nil {
		payload["entered_at"] = entry.EnteredAt.Format(time.RFC3339)
	}
	if entry.ExpiresAt != nil {
		payload["expires_at"] = entry.ExpiresAt.Format(time.RFC3339)
	}
	return Notification{
		Type:    NotifyQueueEntryStatusChanged,
		EventID: entry.EventID,
		UserID:  entry.UserID,
		Payload: payload,
	}
}

func SeatStatusChanged(seat Seat) Notification {
	return Notification{
		Type:    NotifySeatStatusChanged,
		EventID: seat.EventID,
		Payload: map[string]any{
			"seat_id": seat.ID,
			"code":    seat.Code,
			"status":  string(seat.Status),
			"grade":   seat.Grade,
			"price":   seat.Price.String(),
		},
	}
}
