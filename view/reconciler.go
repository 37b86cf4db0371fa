package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/events"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source fetches authoritative booking snapshots.
type Source interface {
	FetchBookings(ctx context.Context, scope bk.Scope) ([]bk.Booking, error)
}

// Reconciler keeps every open view converged with the event stream. Views are
// independent; each one serializes its own updates.
type Reconciler struct {
	source Source
	views  sync.Map // view id -> *View
	logger *zap.Logger
}

func NewReconciler(source Source, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		source: source,
		logger: logger.With(zap.String("component", "reconciler")),
	}
}

// Open registers a view and loads its baseline. When the snapshot fails the view
// is still returned, stale and empty, together with a *SnapshotFetchError.
func (r *Reconciler) Open(ctx context.Context, owner string, scope bk.Scope, filters Filters) (*View, BookingList, error) {
	if err := scope.Validate(); err != nil {
		return nil, BookingList{}, err
	}
	if err := filters.Validate(); err != nil {
		return nil, BookingList{}, err
	}

	v := newView(uuid.NewString(), owner, scope, filters)
	r.views.Store(v.id, v)

	r.logger.Debug("view opened",
		zap.String("view_id", v.id),
		zap.String("owner", owner),
		zap.Stringer("scope", scope))

	list, err := r.LoadSnapshot(ctx, v)
	return v, list, err
}

// LoadSnapshot replaces the view's bookings with a full fetch. A view closed while
// the fetch is in flight discards the result and gets ErrViewClosed.
func (r *Reconciler) LoadSnapshot(ctx context.Context, v *View) (BookingList, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return BookingList{}, ErrViewClosed
	}
	gen := v.beginSnapshot()
	v.mu.Unlock()

	items, fetchErr := r.source.FetchBookings(ctx, v.scope)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		r.logger.Debug("discarding snapshot for closed view", zap.String("view_id", v.id))
		return BookingList{}, ErrViewClosed
	}

	if fetchErr != nil {
		err := &SnapshotFetchError{Scope: v.scope, Err: fetchErr}
		v.failSnapshot(gen, err)
		r.logger.Warn("snapshot fetch failed, keeping last known list",
			zap.String("view_id", v.id),
			zap.Error(fetchErr))
		return v.list(), err
	}

	v.installSnapshot(gen, items)
	return v.list(), nil
}

// ApplyEvent patches every affected view and returns the lists that changed.
// SlotBooked carries nothing to patch against, so affected views are reloaded.
func (r *Reconciler) ApplyEvent(ctx context.Context, ev events.Event) ([]BookingList, error) {
	switch e := ev.(type) {
	case events.BookingCreated, events.BookingStatusChanged:
		var changed []BookingList
		r.views.Range(func(_, value any) bool {
			if list, ok := value.(*View).apply(ev); ok {
				changed = append(changed, list)
			}
			return true
		})
		return changed, nil

	case events.SlotBooked:
		return r.reload(ctx, e.FieldID)

	default:
		return nil, nil
	}
}

func (r *Reconciler) reload(ctx context.Context, fieldID int64) ([]BookingList, error) {
	var targets []*View
	r.views.Range(func(_, value any) bool {
		if v := value.(*View); v.touchesField(fieldID) {
			targets = append(targets, v)
		}
		return true
	})

	lists := make([]BookingList, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	for i, v := range targets {
		g.Go(func() error {
			lists[i], errs[i] = r.LoadSnapshot(ctx, v)
			return nil
		})
	}
	_ = g.Wait()

	var changed []BookingList
	for i := range targets {
		if errors.Is(errs[i], ErrViewClosed) {
			errs[i] = nil
			continue
		}
		changed = append(changed, lists[i])
	}

	if err := errors.Join(errs...); err != nil {
		return changed, fmt.Errorf("reload after slot change on field %d: %w", fieldID, err)
	}
	return changed, nil
}

// Lookup finds a booking in any open view.
func (r *Reconciler) Lookup(bookingID int64) (bk.Booking, bool) {
	var (
		found bk.Booking
		ok    bool
	)
	r.views.Range(func(_, value any) bool {
		found, ok = value.(*View).Booking(bookingID)
		return !ok
	})
	return found, ok
}

func (r *Reconciler) Get(viewID string) (*View, bool) {
	value, ok := r.views.Load(viewID)
	if !ok {
		return nil, false
	}
	return value.(*View), true
}

// Close tears the view down. In-flight snapshots for it are discarded.
func (r *Reconciler) Close(viewID string) error {
	value, ok := r.views.LoadAndDelete(viewID)
	if !ok {
		return ErrViewNotFound
	}
	value.(*View).close()
	return nil
}

// CloseOwner closes every view of one connection and returns how many were closed.
func (r *Reconciler) CloseOwner(owner string) int {
	closed := 0
	r.views.Range(func(key, value any) bool {
		if value.(*View).owner == owner {
			if r.Close(key.(string)) == nil {
				closed++
			}
		}
		return true
	})
	return closed
}

// Views lists the views owned by one connection.
func (r *Reconciler) Views(owner string) []*View {
	var views []*View
	r.views.Range(func(_, value any) bool {
		if v := value.(*View); v.owner == owner {
			views = append(views, v)
		}
		return true
	})
	return views
}
