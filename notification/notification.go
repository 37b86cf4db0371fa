package notification

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindBookingCreated  Kind = "booking_created"  // owner: new booking on one of their fields
	KindBookingApproved Kind = "booking_approved" // customer
	KindBookingRejected Kind = "booking_rejected" // customer
	KindBookingComplete Kind = "booking_complete"
	KindBookingDeleted  Kind = "booking_deleted" // customer: owner removed the booking
	KindSlotTaken       Kind = "slot_taken"
)

var ErrInvalidNotification = errors.New("invalid notification")

type Payload struct {
	BookingID  int64  `json:"booking_id,omitempty"`
	FieldID    int64  `json:"field_id,omitempty"`
	SubFieldID int64  `json:"sub_field_id,omitempty"`
	ActorName  string `json:"actor_name,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type Notification struct {
	ID        string     `json:"id,omitempty"`
	UserID    int64      `json:"user_id"`
	Kind      Kind       `json:"kind"`
	Payload   Payload    `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// DedupKey identifies a notification across redeliveries.
func (n Notification) DedupKey() string {
	if n.ID != "" {
		return "id:" + n.ID
	}
	return fmt.Sprintf("%d:%d:%s", n.UserID, n.Payload.BookingID, n.Kind)
}

func (n Notification) Validate() error {
	if n.UserID <= 0 {
		return fmt.Errorf("%w: missing user_id", ErrInvalidNotification)
	}
	if n.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidNotification)
	}
	if n.ID == "" && n.Payload.BookingID <= 0 {
		return fmt.Errorf("%w: needs an id or a booking_id", ErrInvalidNotification)
	}
	return nil
}

func (n *Notification) markRead(at time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	n.ReadAt = &at
	return true
}
