package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusComplete Status = "complete"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusComplete}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusComplete:
		return true
	}
	return false
}

type Booking struct {
	ID          int64           `json:"booking_id"`
	FieldID     int64           `json:"field_id"`
	SubFieldID  int64           `json:"sub_field_id,omitempty"`
	UserID      int64           `json:"user_id"`
	OwnerID     int64           `json:"owner_id,omitempty"`
	Status      Status          `json:"status"`
	StartDate   string          `json:"start_date"` // YYYY-MM-DD, venue local
	StartTime   string          `json:"start_time"` // HH:MM, venue local
	EndTime     string          `json:"end_time"`
	CancelHours int             `json:"cancel_hours"`
	Price       decimal.Decimal `json:"price"`
	Deposit     decimal.Decimal `json:"deposit"`
	Reasoning   string          `json:"reasoning,omitempty"`
	ActorName   string          `json:"actor_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Done reports whether the booking reached a terminal status.
func (b Booking) Done() bool {
	return b.Status == StatusRejected || b.Status == StatusComplete
}
