package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanksha/field-booking-realtime/events"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/hanksha/field-booking-realtime/topic"
	"github.com/hanksha/field-booking-realtime/view"
	"go.uber.org/zap"
)

// NotificationSource fetches a user's server-side notification snapshot.
type NotificationSource interface {
	FetchNotifications(ctx context.Context, userID int64) ([]notification.Notification, error)
}

// CacheFlusher is implemented by snapshot sources that memoize.
type CacheFlusher interface {
	Flush()
}

// Service routes inbound events to the notification store, the booking views and
// the presentation layer. It is also the hub's message handler.
type Service struct {
	store         *notification.Store
	views         *view.Reconciler
	notifications NotificationSource
	flusher       CacheFlusher
	listener      atomic.Pointer[listenerBox]
	viewTopics    sync.Map // viewTopic -> struct{}, topics subscribed on behalf of views
	metrics       *Metrics
	syncTimeout   time.Duration
	logger        *zap.Logger
}

type listenerBox struct{ Listener }

type viewTopic struct {
	connID string
	topic  topic.Topic
}

type Option func(*Service)

func WithNotificationSource(src NotificationSource) Option {
	return func(s *Service) { s.notifications = src }
}

func WithCacheFlusher(f CacheFlusher) Option {
	return func(s *Service) { s.flusher = f }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSyncTimeout bounds snapshot fetches made on behalf of a connection.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Service) { s.syncTimeout = d }
}

func NewService(store *notification.Store, views *view.Reconciler, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:       store,
		views:       views,
		syncTimeout: 10 * time.Second,
		logger:      logger.With(zap.String("component", "realtime")),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.listener.Store(&listenerBox{nopListener{}})

	return s
}

// SetListener installs the presentation layer. The hub needs the service before
// the presenter can be built, hence the setter.
func (s *Service) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	s.listener.Store(&listenerBox{l})
}

func (s *Service) out() Listener {
	return s.listener.Load().Listener
}

// Handle applies one inbound event. Malformed events are rejected whole with an
// error matching events.ErrMalformedEvent; nothing else is fatal.
func (s *Service) Handle(ctx context.Context, ev events.Event) error {
	if ev == nil {
		return fmt.Errorf("%w: empty event", events.ErrMalformedEvent)
	}

	kind := string(ev.Kind())
	log := s.logger.With(zap.String("kind", kind))

	if err := ev.Validate(); err != nil {
		s.metrics.events.WithLabelValues(kind, outcomeMalformed).Inc()
		log.Warn("rejecting malformed event", zap.Error(err))
		if !errors.Is(err, events.ErrMalformedEvent) {
			err = fmt.Errorf("%w: %v", events.ErrMalformedEvent, err)
		}
		return err
	}

	if pushed, ok := ev.(events.NotificationPushed); ok {
		n := pushed.Normalized()
		if !s.store.Ingest(n) {
			s.metrics.events.WithLabelValues(kind, outcomeDuplicate).Inc()
			log.Debug("duplicate notification", zap.String("dedup_key", n.DedupKey()))
			return nil
		}
		s.publishNotifications(n.UserID)
		s.metrics.events.WithLabelValues(kind, outcomeApplied).Inc()
		return nil
	}

	if s.flusher != nil {
		s.flusher.Flush()
	}

	for _, t := range s.routes(ev) {
		s.out().OnEvent(t, ev)
	}

	changed, err := s.views.ApplyEvent(ctx, ev)
	outcome := outcomeApplied
	if err != nil {
		// Affected views keep their last known list and are flagged stale.
		outcome = outcomeStale
		log.Warn("view reload failed", zap.Error(err))
	}

	for _, list := range changed {
		if v, ok := s.views.Get(list.ViewID); ok {
			s.out().OnBookingListChanged(v.Owner(), list)
		}
	}

	s.metrics.events.WithLabelValues(kind, outcome).Inc()
	log.Debug("event applied", zap.Int("views_changed", len(changed)))

	return nil
}

// routes lists the topics a raw event goes to. A status change without routing
// hints borrows them from a view that holds the booking.
func (s *Service) routes(ev events.Event) []topic.Topic {
	topics := ev.Topics()

	changed, ok := ev.(events.BookingStatusChanged)
	if !ok || len(topics) > 0 {
		return topics
	}

	b, found := s.views.Lookup(changed.BookingID)
	if !found {
		return topics
	}

	changed.FieldID, changed.UserID, changed.OwnerID = b.FieldID, b.UserID, b.OwnerID
	return changed.Topics()
}

// Notifications returns the unread count and up to limit recent notifications.
func (s *Service) Notifications(userID int64, limit int) (int, []notification.Notification) {
	return s.store.UnreadCount(userID), s.store.ListRecent(userID, limit)
}

func (s *Service) UnreadCount(userID int64) int {
	return s.store.UnreadCount(userID)
}

// MarkAllRead marks every held notification read and tells the user's clients.
func (s *Service) MarkAllRead(userID int64) int {
	marked := s.store.MarkAllRead(userID)
	if marked > 0 {
		s.publishNotifications(userID)
	}
	return marked
}

func (s *Service) MarkRead(userID int64, id string) bool {
	marked := s.store.MarkRead(userID, id)
	if marked {
		s.publishNotifications(userID)
	}
	return marked
}

// SyncNotifications merges the server snapshot into the store. It reports whether
// anything changed; a failed fetch leaves the store as it was.
func (s *Service) SyncNotifications(ctx context.Context, userID int64) (bool, error) {
	if s.notifications == nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	list, err := s.notifications.FetchNotifications(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to sync notifications for user %d: %w", userID, err)
	}

	changed := s.store.MergeSnapshot(userID, list)
	if changed {
		s.publishNotifications(userID)
	}
	return changed, nil
}

func (s *Service) publishNotifications(userID int64) {
	unread, list := s.store.Snapshot(userID)
	s.out().OnNotificationsChanged(userID, unread, list)
}

func (s *Service) notificationsPayload(userID int64) NotificationsPayload {
	unread, list := s.store.Snapshot(userID)
	return NotificationsPayload{UserID: userID, Unread: unread, Items: list}
}

type nopListener struct{}

func (nopListener) OnEvent(topic.Topic, events.Event) {}

func (nopListener) OnNotificationsChanged(int64, int, []notification.Notification) {}

func (nopListener) OnBookingListChanged(string, view.BookingList) {}
