package realtime

import (
	"github.com/hanksha/field-booking-realtime/events"
	"github.com/hanksha/field-booking-realtime/hub"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/hanksha/field-booking-realtime/topic"
	"github.com/hanksha/field-booking-realtime/view"
	"go.uber.org/zap"
)

// Outbound frame types.
const (
	FrameNotificationsChanged = "notifications_changed"
	FrameBookingListChanged   = "booking_list_changed"
	FrameViewClosed           = "view_closed"
	FrameMarkedRead           = "marked_read"
)

// Listener is the presentation boundary.
type Listener interface {
	// OnEvent forwards a raw inbound event to one of its topics.
	OnEvent(t topic.Topic, ev events.Event)
	OnNotificationsChanged(userID int64, unread int, list []notification.Notification)
	// OnBookingListChanged targets the connection owning the view.
	OnBookingListChanged(owner string, list view.BookingList)
}

type NotificationsPayload struct {
	UserID int64                       `json:"user_id"`
	Unread int                         `json:"unread"`
	Items  []notification.Notification `json:"items"`
}

// Broadcaster is the part of the hub the presenter needs.
type Broadcaster interface {
	Publish(t topic.Topic, frameType string, payload any) (int, error)
	Send(connID string, frameType string, payload any) error
}

// HubPresenter pushes presentation callbacks to websocket clients.
type HubPresenter struct {
	hub    Broadcaster
	logger *zap.Logger
}

func NewHubPresenter(h Broadcaster, logger *zap.Logger) *HubPresenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HubPresenter{hub: h, logger: logger.With(zap.String("component", "presenter"))}
}

func (p *HubPresenter) OnEvent(t topic.Topic, ev events.Event) {
	if _, err := p.hub.Publish(t, string(ev.Kind()), ev); err != nil {
		p.logger.Warn("failed to publish event", zap.String("topic", t.String()), zap.Error(err))
	}
}

func (p *HubPresenter) OnNotificationsChanged(userID int64, unread int, list []notification.Notification) {
	payload := NotificationsPayload{UserID: userID, Unread: unread, Items: list}
	if _, err := p.hub.Publish(topic.User(userID), FrameNotificationsChanged, payload); err != nil {
		p.logger.Warn("failed to publish notifications", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (p *HubPresenter) OnBookingListChanged(owner string, list view.BookingList) {
	if err := p.hub.Send(owner, FrameBookingListChanged, list); err != nil {
		p.logger.Debug("booking list not delivered",
			zap.String("conn_id", owner),
			zap.String("view_id", list.ViewID),
			zap.Error(err))
	}
}

var _ Broadcaster = (*hub.Hub)(nil)
