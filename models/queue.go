package models

import "time"

type QueueEntryStatus string

const (
	QueueWaiting   QueueEntryStatus = "waiting"
	QueueEntered   QueueEntryStatus = "entered"
	QueueExpired   QueueEntryStatus = "expired"
	QueueCompleted QueueEntryStatus = "completed"
)

// QueueEntry is one user's participation in one event's waiting room.
// Rank is assigned once at shuffle time and never changes.
type QueueEntry struct {
	ID        string           `json:"id"`
	EventID   string           `json:"event_id"`
	UserID    string           `json:"user_id"`
	Rank      int              `json:"rank"`
	Status    QueueEntryStatus `json:"status"`
	EnteredAt *time.Time       `json:"entered_at,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

func (q *QueueEntry) IsExpired(now time.Time) bool {
	if q.ExpiresAt == nil {
		return false
	}
	return now.After(*q.ExpiresAt)
}

// QueueStatus is the user-facing read model for getQueueStatus.
type QueueStatus struct {
	EventID       string           `json:"event_id"`
	UserID        string           `json:"user_id"`
	Status        QueueEntryStatus `json:"status"`
	Rank          int              `json:"rank,omitempty"`
	WaitingAhead  int              `json:"waiting_ahead,omitempty"`
	TotalWaiting  int              `json:"total_waiting,omitempty"`
	EstimatedWait int              `json:"estimated_wait_minutes,omitempty"`
	Progress      int              `json:"progress,omitempty"`
	EnteredAt     *time.Time       `json:"entered_at,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
}

// QueueStatistics is the admin-facing per-event breakdown by status.
type QueueStatistics struct {
	EventID   string `json:"event_id"`
	Total     int    `json:"total"`
	Waiting   int    `json:"waiting"`
	Entered   int    `json:"entered"`
	Expired   int    `json:"expired"`
	Completed int    `json:"completed"`
}
