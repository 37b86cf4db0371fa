package view

import (
	"cmp"
	"slices"
	"sync"

	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/events"
)

// BookingList is what the presentation layer renders for one view.
type BookingList struct {
	ViewID            string       `json:"view_id"`
	Scope             bk.Scope     `json:"scope"`
	Filters           Filters      `json:"filters"`
	Items             []bk.Booking `json:"items"`
	Stats             Stats        `json:"stats"`
	NewItemsAvailable bool         `json:"new_items_available"`
	Stale             bool         `json:"stale"`
	Error             string       `json:"error,omitempty"`
	Version           uint64       `json:"version"`
}

// View is the materialized booking list of one scope, owned by one connection.
// It holds every booking of the scope; the visible list is derived by filters.
type View struct {
	id      string
	owner   string
	scope   bk.Scope
	filters Filters

	mu       sync.Mutex
	bookings map[int64]bk.Booking
	visible  []bk.Booking
	newItems bool
	stale    bool
	lastErr  string
	version  uint64
	closed   bool

	// snapshot bookkeeping
	loading   int
	started   uint64
	installed uint64
	pending   []events.Event
}

func newView(id, owner string, scope bk.Scope, filters Filters) *View {
	return &View{
		id:       id,
		owner:    owner,
		scope:    scope,
		filters:  filters,
		bookings: make(map[int64]bk.Booking),
		visible:  []bk.Booking{},
	}
}

func (v *View) ID() string { return v.id }

// Owner is the connection the view belongs to.
func (v *View) Owner() string { return v.owner }

func (v *View) Scope() bk.Scope { return v.scope }

func (v *View) Filters() Filters { return v.filters }

func (v *View) List() BookingList {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list()
}

// Holds reports whether the booking is part of the view, visible or not.
func (v *View) Holds(bookingID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.bookings[bookingID]
	return ok
}

// Booking returns a booking of the view, visible or not.
func (v *View) Booking(id int64) (bk.Booking, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.bookings[id]
	return b, ok
}

// touchesField reports whether a slot change on fieldID may affect the view.
func (v *View) touchesField(fieldID int64) bool {
	if v.scope.Kind == bk.ScopeField {
		return v.scope.ID == fieldID
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, b := range v.bookings {
		if b.FieldID == fieldID {
			return true
		}
	}
	return false
}

// apply patches the view with one booking event. Events arriving while a snapshot
// is in flight are buffered for replay. It reports whether the list changed.
func (v *View) apply(ev events.Event) (BookingList, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return BookingList{}, false
	}

	if v.loading > 0 {
		v.pending = append(v.pending, ev)
		return BookingList{}, false
	}

	if !v.patch(ev) {
		return BookingList{}, false
	}

	v.refresh()
	return v.list(), true
}

// patch expects v.mu to be held.
func (v *View) patch(ev events.Event) bool {
	switch e := ev.(type) {
	case events.BookingCreated:
		b := e.Normalized()
		if !v.scope.Contains(b) {
			return false
		}
		if _, ok := v.bookings[b.ID]; ok {
			return false
		}
		v.bookings[b.ID] = b
		if !v.filters.Match(b) {
			v.newItems = true
		}
		return true

	case events.BookingStatusChanged:
		b, ok := v.bookings[e.BookingID]
		if !ok || b.Status == e.NewStatus {
			return false
		}
		// Out-of-order or replayed transitions are ignored.
		if !bk.CanTransition(b.Status, e.NewStatus) {
			return false
		}
		b.Status = e.NewStatus
		if e.Reasoning != "" {
			b.Reasoning = e.Reasoning
		}
		v.bookings[b.ID] = b
		return true
	}

	return false
}

// beginSnapshot expects v.mu to be held.
func (v *View) beginSnapshot() uint64 {
	v.loading++
	v.started++
	return v.started
}

// installSnapshot expects v.mu to be held. Older snapshots never overwrite newer ones.
func (v *View) installSnapshot(gen uint64, items []bk.Booking) {
	if gen > v.installed {
		v.installed = gen
		v.bookings = make(map[int64]bk.Booking, len(items))
		for _, b := range items {
			if v.scope.Contains(b) {
				v.bookings[b.ID] = b
			}
		}
		v.newItems = false
		v.stale = false
		v.lastErr = ""
		v.refresh()
	}
	v.replay()
}

// failSnapshot expects v.mu to be held. A failure older than the installed
// snapshot leaves the view fresh.
func (v *View) failSnapshot(gen uint64, err error) {
	if gen > v.installed {
		v.stale = true
		v.lastErr = err.Error()
	}
	v.replay()
}

// replay applies buffered events once no snapshot is in flight.
func (v *View) replay() {
	v.loading--
	if v.loading > 0 {
		return
	}
	for _, ev := range v.pending {
		v.patch(ev)
	}
	v.pending = nil
	v.refresh()
}

// refresh rebuilds the visible list. It expects v.mu to be held.
func (v *View) refresh() {
	visible := make([]bk.Booking, 0, len(v.bookings))
	for _, b := range v.bookings {
		if v.filters.Match(b) {
			visible = append(visible, b)
		}
	}
	slices.SortFunc(visible, func(a, b bk.Booking) int {
		return cmp.Or(
			cmp.Compare(a.StartDate, b.StartDate),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
	v.visible = visible
	v.version++
}

func (v *View) list() BookingList {
	items := make([]bk.Booking, len(v.visible))
	copy(items, v.visible)

	return BookingList{
		ViewID:            v.id,
		Scope:             v.scope,
		Filters:           v.filters,
		Items:             items,
		Stats:             ComputeStats(items),
		NewItemsAvailable: v.newItems,
		Stale:             v.stale,
		Error:             v.lastErr,
		Version:           v.version,
	}
}

func (v *View) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.pending = nil
}
