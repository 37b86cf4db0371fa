package events

import (
	"encoding/json"
	"errors"
	"fmt"

	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/hanksha/field-booking-realtime/topic"
)

type Kind string

// Kinds double as RabbitMQ routing keys.
const (
	KindBookingCreated       Kind = "booking.created"
	KindBookingStatusChanged Kind = "booking.status_changed"
	KindSlotBooked           Kind = "slot.booked"
	KindNotificationPushed   Kind = "notification.pushed"
)

var ErrMalformedEvent = errors.New("malformed event")

var ErrUnknownKind = errors.New("unknown event kind")

// Event is one item of the inbound stream.
type Event interface {
	Kind() Kind
	Validate() error
	// Topics lists where the raw event is published.
	Topics() []topic.Topic
}

type BookingCreated struct {
	bk.Booking
}

func (BookingCreated) Kind() Kind { return KindBookingCreated }

func (e BookingCreated) Validate() error {
	switch {
	case e.ID <= 0:
		return malformed(e, "booking_id")
	case e.FieldID <= 0:
		return malformed(e, "field_id")
	case e.UserID <= 0:
		return malformed(e, "user_id")
	case e.Status != "" && e.Status != bk.StatusPending:
		return fmt.Errorf("%w: %s: bookings are created pending, got %q", ErrMalformedEvent, e.Kind(), e.Status)
	}
	return nil
}

func (e BookingCreated) Topics() []topic.Topic {
	topics := []topic.Topic{topic.Field(e.FieldID), topic.User(e.UserID)}
	if e.OwnerID > 0 && e.OwnerID != e.UserID {
		topics = append(topics, topic.User(e.OwnerID))
	}
	return topics
}

// Normalized fills the defaults a freshly created booking has.
func (e BookingCreated) Normalized() bk.Booking {
	b := e.Booking
	if b.Status == "" {
		b.Status = bk.StatusPending
	}
	return b
}

type BookingStatusChanged struct {
	BookingID int64     `json:"booking_id"`
	OldStatus bk.Status `json:"old_status,omitempty"`
	NewStatus bk.Status `json:"new_status"`
	Reasoning string    `json:"reasoning,omitempty"`
	// Optional routing hints. When absent the dispatcher looks them up in open views.
	FieldID int64 `json:"field_id,omitempty"`
	UserID  int64 `json:"user_id,omitempty"`
	OwnerID int64 `json:"owner_id,omitempty"`
}

func (BookingStatusChanged) Kind() Kind { return KindBookingStatusChanged }

func (e BookingStatusChanged) Validate() error {
	switch {
	case e.BookingID <= 0:
		return malformed(e, "booking_id")
	case !e.NewStatus.Valid():
		return malformed(e, "new_status")
	case e.OldStatus != "" && !e.OldStatus.Valid():
		return malformed(e, "old_status")
	}
	return nil
}

func (e BookingStatusChanged) Topics() []topic.Topic {
	topics := []topic.Topic{}
	if e.FieldID > 0 {
		topics = append(topics, topic.Field(e.FieldID))
	}
	if e.UserID > 0 {
		topics = append(topics, topic.User(e.UserID))
	}
	if e.OwnerID > 0 && e.OwnerID != e.UserID {
		topics = append(topics, topic.User(e.OwnerID))
	}
	return topics
}

// SlotBooked only says that something changed in a field's availability.
type SlotBooked struct {
	FieldID    int64 `json:"field_id"`
	SubFieldID int64 `json:"sub_field_id,omitempty"`
}

func (SlotBooked) Kind() Kind { return KindSlotBooked }

func (e SlotBooked) Validate() error {
	if e.FieldID <= 0 {
		return malformed(e, "field_id")
	}
	return nil
}

func (e SlotBooked) Topics() []topic.Topic {
	return []topic.Topic{topic.Field(e.FieldID), topic.Global}
}

type NotificationPushed struct {
	UserID       int64                     `json:"user_id"`
	Notification notification.Notification `json:"notification"`
}

func (NotificationPushed) Kind() Kind { return KindNotificationPushed }

func (e NotificationPushed) Validate() error {
	if e.UserID <= 0 {
		return malformed(e, "user_id")
	}
	if e.Notification.UserID != 0 && e.Notification.UserID != e.UserID {
		return fmt.Errorf("%w: %s: notification belongs to user %d", ErrMalformedEvent, e.Kind(), e.Notification.UserID)
	}
	n := e.Normalized()
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, e.Kind(), err)
	}
	return nil
}

func (e NotificationPushed) Topics() []topic.Topic {
	return []topic.Topic{topic.User(e.UserID)}
}

// Normalized returns the notification owned by the event's user.
func (e NotificationPushed) Normalized() notification.Notification {
	n := e.Notification
	n.UserID = e.UserID
	return n
}

// Envelope is the wire form shared by the webhook, the broker and the websocket.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses the payload of the given kind and validates it.
func Decode(kind Kind, payload []byte) (Event, error) {
	var (
		ev  Event
		err error
	)

	switch kind {
	case KindBookingCreated:
		ev, err = unmarshal[BookingCreated](payload)
	case KindBookingStatusChanged:
		ev, err = unmarshal[BookingStatusChanged](payload)
	case KindSlotBooked:
		ev, err = unmarshal[SlotBooked](payload)
	case KindNotificationPushed:
		ev, err = unmarshal[NotificationPushed](payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err != nil {
		return nil, err
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}

	return ev, nil
}

// DecodeEnvelope parses {"type": ..., "payload": ...}.
func DecodeEnvelope(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return Decode(env.Type, env.Payload)
}

func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", ev.Kind(), err)
	}
	return json.Marshal(Envelope{Type: ev.Kind(), Payload: payload})
}

func unmarshal[T Event](payload []byte) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: decode payload failed: %v", ErrMalformedEvent, err)
	}
	return t, nil
}

func malformed(ev Event, field string) error {
	return fmt.Errorf("%w: %s: missing or invalid %s", ErrMalformedEvent, ev.Kind(), field)
}
