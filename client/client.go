package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hanksha/field-booking-realtime/hub"
	"github.com/hanksha/field-booking-realtime/topic"
	"go.uber.org/zap"
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

var ErrNotConnected = errors.New("not connected")

// Frame is a server frame with its payload left raw.
type Frame struct {
	Type    string          `json:"type"`
	Topic   topic.Topic     `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler receives connection state changes and every server frame.
type Handler interface {
	OnConnectionStateChanged(state State)
	OnFrame(f Frame)
}

type Config struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	Backoff          *Backoff
}

// Client keeps one websocket to the hub alive and re-sends the desired topic set
// after every reconnect.
type Client struct {
	cfg     Config
	handler Handler
	dialer  *websocket.Dialer
	logger  *zap.Logger

	mu     sync.Mutex
	topics map[topic.Topic]struct{}
	ws     *websocket.Conn
	state  State
}

func New(cfg Config, handler Handler, logger *zap.Logger) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultBackoff()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:     cfg,
		handler: handler,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:  logger.With(zap.String("component", "client")),
		topics:  make(map[topic.Topic]struct{}),
		state:   StateDisconnected,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Topics returns the desired topic set.
func (c *Client) Topics() []topic.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]topic.Topic, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// Subscribe adds topics to the desired set and subscribes now when connected.
func (c *Client) Subscribe(topics ...topic.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []topic.Topic
	for _, t := range topics {
		if _, ok := c.topics[t]; !ok {
			c.topics[t] = struct{}{}
			added = append(added, t)
		}
	}
	if len(added) == 0 || c.ws == nil {
		return nil
	}
	return c.writeLocked(hub.ClientMessage{Type: hub.MsgSubscribe, Topics: toStrings(added)})
}

func (c *Client) Unsubscribe(topics ...topic.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []topic.Topic
	for _, t := range topics {
		if _, ok := c.topics[t]; ok {
			delete(c.topics, t)
			removed = append(removed, t)
		}
	}
	if len(removed) == 0 || c.ws == nil {
		return nil
	}
	return c.writeLocked(hub.ClientMessage{Type: hub.MsgUnsubscribe, Topics: toStrings(removed)})
}

// Send writes an application message such as open_view.
func (c *Client) Send(msgType string, payload any) error {
	msg := hub.ClientMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		msg.Payload = raw
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return ErrNotConnected
	}
	return c.writeLocked(msg)
}

// Run connects and keeps reconnecting until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StateDisconnected)

	for {
		c.setState(StateConnecting)

		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		c.setState(StateDisconnected)

		delay := c.cfg.Backoff.Next()
		c.logger.Warn("connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	ws, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	c.mu.Lock()
	c.ws = ws
	var resubscribe error
	if len(c.topics) > 0 {
		topics := make([]topic.Topic, 0, len(c.topics))
		for t := range c.topics {
			topics = append(topics, t)
		}
		slices.Sort(topics)
		resubscribe = c.writeLocked(hub.ClientMessage{Type: hub.MsgSubscribe, Topics: toStrings(topics)})
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		_ = ws.Close()
	}()

	if resubscribe != nil {
		return resubscribe
	}

	c.cfg.Backoff.Reset()
	c.setState(StateConnected)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("ignoring malformed frame", zap.Error(err))
			continue
		}
		if c.handler != nil {
			c.handler.OnFrame(f)
		}
	}
}

func (c *Client) writeLocked(msg hub.ClientMessage) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed && c.handler != nil {
		c.handler.OnConnectionStateChanged(s)
	}
}

func toStrings(topics []topic.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.String()
	}
	return out
}
