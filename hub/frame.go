package hub

import (
	"encoding/json"

	"github.com/hanksha/field-booking-realtime/topic"
)

// Frame types sent by the hub itself.
const (
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FramePong         = "pong"
	FrameError        = "error"
	FrameDisconnected = "disconnected"
)

// Control frame types understood by the hub. Anything else goes to the MessageHandler.
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"
)

// Frame is the server -> client envelope.
type Frame struct {
	Type    string      `json:"type"`
	Topic   topic.Topic `json:"topic,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// ClientMessage is the client -> server envelope.
type ClientMessage struct {
	Type    string          `json:"type"`
	Topics  []string        `json:"topics,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DisconnectPayload struct {
	Reason string `json:"reason"`
}

type outbound struct {
	topic topic.Topic // empty for direct frames
	data  []byte
}
