package booking

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system" // time-driven completion
)

type Actor struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusComplete},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionRequest struct {
	Booking   Booking `json:"booking"`
	To        Status  `json:"to"`
	Reasoning string  `json:"reasoning"`
	Actor     Actor   `json:"actor"`
}

// Validator enforces the booking lifecycle and deadline rules in the venue's time zone.
type Validator struct {
	loc *time.Location
}

func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{loc: loc}
}

func (v *Validator) Location() *time.Location {
	return v.loc
}

func (v *Validator) ValidateTransition(req TransitionRequest) error {
	from := req.Booking.Status

	if !from.Valid() {
		return invalid("status", "unknown current status %q", from)
	}

	if !req.To.Valid() {
		return invalid("to", "unknown target status %q", req.To)
	}

	if !CanTransition(from, req.To) {
		return invalid("to", "transition %s -> %s is not allowed", from, req.To)
	}

	if req.To == StatusRejected && strings.TrimSpace(req.Reasoning) == "" {
		return invalid("reasoning", "required when rejecting a booking")
	}

	switch req.To {
	case StatusApproved, StatusRejected:
		if !fieldAuthority(req.Booking, req.Actor) {
			return invalid("actor", "only the field owner or an admin can %s a booking", verb(req.To))
		}
	case StatusComplete:
		if req.Actor.Role != RoleSystem && req.Actor.Role != RoleAdmin {
			return invalid("actor", "completion is time driven")
		}
	}

	return nil
}

// ValidateDeletion checks the cancel-by-deletion rule: owner only, never once complete.
func (v *Validator) ValidateDeletion(b Booking, actor Actor) error {
	if actor.Role != RoleOwner || b.OwnerID == 0 || actor.UserID != b.OwnerID {
		return fmt.Errorf("%w: only the field owner can delete a booking", ErrNotAllowed)
	}

	if b.Status == StatusComplete {
		return invalid("status", "completed bookings cannot be deleted")
	}

	return nil
}

// CancellationDeadline is start_date + start_time - cancel_hours, computed in civil time.
func (v *Validator) CancellationDeadline(b Booking) (time.Time, error) {
	if b.CancelHours < 0 {
		return time.Time{}, fmt.Errorf("%w: negative cancel_hours %d", ErrDeadlineUnavailable, b.CancelHours)
	}

	start, err := v.Start(b)
	if err != nil {
		return time.Time{}, err
	}

	deadline := time.Date(start.Year(), start.Month(), start.Day(),
		start.Hour()-b.CancelHours, start.Minute(), start.Second(), 0, v.loc)

	return deadline, nil
}

// CancellationOpen reports whether now is still before the cancellation deadline.
func (v *Validator) CancellationOpen(b Booking, now time.Time) bool {
	deadline, err := v.CancellationDeadline(b)
	if err != nil {
		return false
	}
	return now.Before(deadline)
}

// Start parses the booking's start in the venue's local time.
func (v *Validator) Start(b Booking) (time.Time, error) {
	date := strings.TrimSpace(b.StartDate)
	clock := strings.TrimSpace(b.StartTime)

	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: missing start date or time", ErrDeadlineUnavailable)
	}

	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, v.loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: cannot parse %q %q", ErrDeadlineUnavailable, date, clock)
}

func fieldAuthority(b Booking, actor Actor) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleOwner:
		return b.OwnerID != 0 && b.OwnerID == actor.UserID
	}
	return false
}

func verb(s Status) string {
	if s == StatusApproved {
		return "approve"
	}
	return "reject"
}
