package view

import (
	"fmt"
	"slices"
	"time"

	bk "github.com/hanksha/field-booking-realtime/booking"
)

const dateLayout = "2006-01-02"

// Filters narrow a view's visible list. Dates are inclusive.
type Filters struct {
	Statuses []bk.Status `json:"statuses,omitempty"`
	DateFrom string      `json:"date_from,omitempty"`
	DateTo   string      `json:"date_to,omitempty"`
}

func (f Filters) Validate() error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return &bk.ValidationError{Field: "filters.statuses", Reason: fmt.Sprintf("unknown status %q", s)}
		}
	}

	var from, to time.Time
	var err error
	if f.DateFrom != "" {
		if from, err = time.Parse(dateLayout, f.DateFrom); err != nil {
			return &bk.ValidationError{Field: "filters.date_from", Reason: "must be YYYY-MM-DD"}
		}
	}
	if f.DateTo != "" {
		if to, err = time.Parse(dateLayout, f.DateTo); err != nil {
			return &bk.ValidationError{Field: "filters.date_to", Reason: "must be YYYY-MM-DD"}
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return &bk.ValidationError{Field: "filters.date_to", Reason: "must not be before date_from"}
	}

	return nil
}

// Match reports whether b is visible under f. An empty filter matches everything.
func (f Filters) Match(b bk.Booking) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
		return false
	}
	// YYYY-MM-DD compares correctly as a string.
	if f.DateFrom != "" && b.StartDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && b.StartDate > f.DateTo {
		return false
	}
	return true
}
