package models

import "time"

type EventStatus string

const (
	EventDraft      EventStatus = "draft"
	EventPublished  EventStatus = "published"
	EventQueueReady EventStatus = "queue_ready"
	EventEnded      EventStatus = "ended"
)

type Event struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Venue      string      `json:"venue"`
	StartTime  time.Time   `json:"start_time"`
	TotalSeats int         `json:"total_seats"`
	Status     EventStatus `json:"status"`
}
