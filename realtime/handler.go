package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/hub"
	"github.com/hanksha/field-booking-realtime/topic"
	"github.com/hanksha/field-booking-realtime/view"
	"go.uber.org/zap"
)

var _ hub.MessageHandler = (*Service)(nil)

// Guard lets a connection subscribe only to its own user topic. Field topics and
// the global topic are public.
func Guard(c *hub.Conn, t topic.Topic) bool {
	if id, ok := t.UserID(); ok {
		return strconv.FormatInt(id, 10) == c.ClientID()
	}
	return true
}

// UserID parses the identity a connection was opened with.
func UserID(c *hub.Conn) (int64, error) {
	id, err := strconv.ParseInt(c.ClientID(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", c.ClientID())
	}
	return id, nil
}

// HandleConnect subscribes the connection to its user topic and sends the current
// notifications.
func (s *Service) HandleConnect(c *hub.Conn) {
	userID, err := UserID(c)
	if err != nil {
		s.replyError(c, "invalid_identity", err)
		return
	}

	if err := c.Subscribe(topic.User(userID)); err != nil {
		s.logger.Warn("failed to subscribe user topic", zap.String("conn_id", c.ID()), zap.Error(err))
	}

	s.syncAndReply(c, userID)
}

func (s *Service) HandleMessage(c *hub.Conn, msg hub.ClientMessage) {
	userID, err := UserID(c)
	if err != nil {
		s.replyError(c, "invalid_identity", err)
		return
	}

	switch msg.Type {
	case MsgOpenView:
		var req OpenViewRequest
		if err := decode(msg, &req); err != nil {
			s.replyError(c, "bad_request", err)
			return
		}
		s.openView(c, userID, req)

	case MsgCloseView:
		var req ViewRequest
		if err := decode(msg, &req); err != nil {
			s.replyError(c, "bad_request", err)
			return
		}
		s.closeView(c, req.ViewID)

	case MsgReloadView:
		var req ViewRequest
		if err := decode(msg, &req); err != nil {
			s.replyError(c, "bad_request", err)
			return
		}
		s.reloadView(c, req.ViewID)

	case MsgSyncNotifications:
		s.syncAndReply(c, userID)

	case MsgMarkAllRead:
		marked := s.MarkAllRead(userID)
		_ = c.Send(FrameMarkedRead, MarkedReadPayload{Marked: marked})

	case MsgMarkRead:
		var req MarkReadRequest
		if err := decode(msg, &req); err != nil || req.ID == "" {
			s.replyError(c, "bad_request", errors.New("mark_read needs an id"))
			return
		}
		marked := 0
		if s.MarkRead(userID, req.ID) {
			marked = 1
		}
		_ = c.Send(FrameMarkedRead, MarkedReadPayload{Marked: marked})

	default:
		s.replyError(c, "unsupported", fmt.Errorf("unsupported message type %q", msg.Type))
	}
}

// HandleDisconnect releases every view of the connection.
func (s *Service) HandleDisconnect(c *hub.Conn, reason string) {
	closed := s.views.CloseOwner(c.ID())
	s.metrics.views.Sub(float64(closed))

	s.viewTopics.Range(func(key, _ any) bool {
		if key.(viewTopic).connID == c.ID() {
			s.viewTopics.Delete(key)
		}
		return true
	})

	if closed > 0 {
		s.logger.Debug("closed views of disconnected client",
			zap.String("conn_id", c.ID()),
			zap.String("reason", reason),
			zap.Int("views", closed))
	}
}

func (s *Service) openView(c *hub.Conn, userID int64, req OpenViewRequest) {
	if err := errors.Join(req.Scope.Validate(), req.Filters.Validate()); err != nil {
		s.replyError(c, "invalid_view", err)
		return
	}

	if err := authorizeScope(userID, req.Scope); err != nil {
		s.replyError(c, "forbidden", err)
		return
	}

	t := req.Scope.Topic()
	added := !c.Subscribed(t)
	if err := c.Subscribe(t); err != nil {
		s.replyError(c, "subscribe_failed", err)
		return
	}
	if added {
		s.viewTopics.Store(viewTopic{connID: c.ID(), topic: t}, struct{}{})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	v, list, err := s.views.Open(ctx, c.ID(), req.Scope, req.Filters)
	if v == nil {
		s.releaseTopic(c, t)
		s.replyError(c, "invalid_view", err)
		return
	}

	s.metrics.views.Inc()

	// The connection may have gone while the snapshot was loading.
	select {
	case <-c.Done():
		if s.views.Close(v.ID()) == nil {
			s.metrics.views.Dec()
		}
		return
	default:
	}

	var fetchErr *view.SnapshotFetchError
	if err != nil && !errors.As(err, &fetchErr) {
		s.logger.Warn("open view failed", zap.String("view_id", v.ID()), zap.Error(err))
	}

	_ = c.Send(FrameBookingListChanged, list)
}

func (s *Service) closeView(c *hub.Conn, viewID string) {
	v, ok := s.views.Get(viewID)
	if !ok || v.Owner() != c.ID() {
		s.replyError(c, "not_found", view.ErrViewNotFound)
		return
	}

	if s.views.Close(viewID) == nil {
		s.metrics.views.Dec()
	}

	s.releaseTopic(c, v.Scope().Topic())

	_ = c.Send(FrameViewClosed, ViewRequest{ViewID: viewID})
}

func (s *Service) reloadView(c *hub.Conn, viewID string) {
	v, ok := s.views.Get(viewID)
	if !ok || v.Owner() != c.ID() {
		s.replyError(c, "not_found", view.ErrViewNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	list, err := s.views.LoadSnapshot(ctx, v)
	if errors.Is(err, view.ErrViewClosed) {
		return
	}
	_ = c.Send(FrameBookingListChanged, list)
}

// watching reports whether another open view of the connection still needs t.
// releaseTopic unsubscribes a topic the connection's views added once no view
// needs it. Topics the client subscribed to itself are kept.
func (s *Service) releaseTopic(c *hub.Conn, t topic.Topic) {
	if s.watching(c.ID(), t) {
		return
	}
	if _, ok := s.viewTopics.LoadAndDelete(viewTopic{connID: c.ID(), topic: t}); ok {
		c.Unsubscribe(t)
	}
}

func (s *Service) watching(connID string, t topic.Topic) bool {
	for _, v := range s.views.Views(connID) {
		if v.Scope().Topic() == t {
			return true
		}
	}
	return false
}

func (s *Service) syncAndReply(c *hub.Conn, userID int64) {
	changed, err := s.SyncNotifications(context.Background(), userID)
	if err != nil {
		s.logger.Warn("notification sync failed, serving cached state", zap.Int64("user_id", userID), zap.Error(err))
	}
	if changed {
		// Already published on the user topic.
		return
	}
	_ = c.Send(FrameNotificationsChanged, s.notificationsPayload(userID))
}

func (s *Service) replyError(c *hub.Conn, code string, err error) {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	_ = c.Send(hub.FrameError, hub.ErrorPayload{Code: code, Message: msg})
}

// authorizeScope lets users open their own user and owner scopes. Field scopes
// are public like field topics.
func authorizeScope(userID int64, scope bk.Scope) error {
	switch scope.Kind {
	case bk.ScopeUser, bk.ScopeOwner:
		if scope.ID != userID {
			return fmt.Errorf("%w: scope %s", bk.ErrNotAllowed, scope)
		}
	}
	return nil
}

func decode(msg hub.ClientMessage, out any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s needs a payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return nil
}
