package booking

import (
	"fmt"

	"github.com/hanksha/field-booking-realtime/topic"
)

type ScopeKind string

const (
	ScopeUser  ScopeKind = "user"  // a customer's own bookings
	ScopeOwner ScopeKind = "owner" // every booking on fields of one owner
	ScopeField ScopeKind = "field" // one field, used by the statistics screen
)

// Scope selects which bookings a view materializes.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   int64     `json:"id"`
}

func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeUser, ScopeOwner, ScopeField:
	default:
		return invalid("scope.kind", "unknown scope kind %q", s.Kind)
	}
	if s.ID <= 0 {
		return invalid("scope.id", "must be positive")
	}
	return nil
}

// Contains reports whether b belongs to the scope.
func (s Scope) Contains(b Booking) bool {
	switch s.Kind {
	case ScopeUser:
		return b.UserID == s.ID
	case ScopeOwner:
		return b.OwnerID == s.ID
	case ScopeField:
		return b.FieldID == s.ID
	}
	return false
}

// Topic is the channel on which events for this scope are published.
func (s Scope) Topic() topic.Topic {
	if s.Kind == ScopeField {
		return topic.Field(s.ID)
	}
	return topic.User(s.ID)
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}
