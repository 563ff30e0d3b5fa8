package models

import "github.com/shopspring/decimal"

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatSold      SeatStatus = "sold"
)

// Seat is one sellable unit for one event. Version is the optimistic
// lock token: every status-changing write must carry the version it
// read, and increments it on success.
type Seat struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	Code       string          `json:"code"`
	Grade      string          `json:"grade"`
	Price      decimal.Decimal `json:"price"`
	Status     SeatStatus      `json:"status"`
	Version    int             `json:"version"`
	ReservedBy string          `json:"reserved_by,omitempty"`
}

func (s *Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}
