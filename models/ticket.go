package models

import "time"

type TicketStatus string

const (
	TicketDraft  TicketStatus = "draft"
	TicketPaid   TicketStatus = "paid"
	TicketFailed TicketStatus = "failed"
)

// Ticket is the reservation handle created when an entered user wins a
// seat. A draft ticket holds the seat until payment completes or the
// hold window lapses.
type Ticket struct {
	ID        string       `json:"id"`
	EventID   string       `json:"event_id"`
	SeatID    string       `json:"seat_id"`
	UserID    string       `json:"user_id"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
