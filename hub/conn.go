package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hanksha/field-booking-realtime/topic"
	"go.uber.org/zap"
)

const (
	ReasonStale          = "stale"
	ReasonClientClosed   = "client closed"
	ReasonReadError      = "read error"
	ReasonWriteError     = "write error"
	ReasonServerShutdown = "server shutdown"
)

// Conn is one websocket client. The send channel is never closed; senders
// select on done instead.
type Conn struct {
	id       string
	clientID string
	ws       *websocket.Conn
	hub      *Hub
	send     chan outbound
	logger   *zap.Logger

	mu     sync.RWMutex
	topics map[topic.Topic]struct{}
	closed bool

	lastSeen   atomic.Int64 // unix nanos of the last inbound frame
	lastPingAt int64        // write pump only
	missed     int          // write pump only

	closeOnce sync.Once
	done      chan struct{}
}

func (c *Conn) ID() string { return c.id }

// ClientID is the identity the connection was opened with.
func (c *Conn) ClientID() string { return c.clientID }

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Topics() []topic.Topic {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]topic.Topic, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

func (c *Conn) Subscribed(t topic.Topic) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[t]
	return ok
}

func (c *Conn) Subscribe(t topic.Topic) error { return c.hub.Subscribe(c, t) }

func (c *Conn) Unsubscribe(t topic.Topic) { c.hub.Unsubscribe(c, t) }

// Send queues a direct frame for this connection only.
func (c *Conn) Send(frameType string, payload any) error {
	data, err := json.Marshal(Frame{Type: frameType, Payload: payload})
	if err != nil {
		c.hub.metrics.dropped.WithLabelValues(dropMarshal).Inc()
		return fmt.Errorf("failed to marshal %s frame: %w", frameType, err)
	}

	if err := c.enqueue(outbound{data: data}); err != nil {
		reason := dropSlow
		if errors.Is(err, ErrConnClosed) {
			reason = dropNoConn
		}
		c.hub.metrics.dropped.WithLabelValues(reason).Inc()
		c.logger.Debug("dropped direct frame", zap.String("type", frameType), zap.Error(err))
		return err
	}

	return nil
}

func (c *Conn) enqueue(o outbound) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- o:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

func (c *Conn) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// heartbeatMissed reports whether the ping sent at the previous tick got no
// inbound frame since.
func (c *Conn) heartbeatMissed() bool {
	if c.lastPingAt == 0 {
		return false
	}
	if c.lastSeen.Load() >= c.lastPingAt {
		c.missed = 0
		return false
	}
	c.missed++
	return true
}

func (c *Conn) readPump() {
	reason := ReasonClientClosed
	defer func() { c.shutdown(reason) }()

	c.ws.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				reason = ReasonReadError
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		c.touch()

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			_ = c.Send(FrameError, ErrorPayload{Code: "bad_message", Message: "message must be a JSON object with a type"})
			continue
		}

		c.dispatch(msg)
	}
}

func (c *Conn) dispatch(msg ClientMessage) {
	switch msg.Type {
	case MsgSubscribe:
		for _, raw := range msg.Topics {
			t, err := topic.Parse(raw)
			if err != nil {
				_ = c.Send(FrameError, ErrorPayload{Code: "invalid_topic", Message: err.Error()})
				continue
			}
			if err := c.hub.Subscribe(c, t); err != nil {
				code := "subscribe_failed"
				if errors.Is(err, ErrTopicForbidden) {
					code = "forbidden"
				}
				_ = c.Send(FrameError, ErrorPayload{Code: code, Message: err.Error()})
				continue
			}
			_ = c.Send(FrameSubscribed, map[string]topic.Topic{"topic": t})
		}

	case MsgUnsubscribe:
		for _, raw := range msg.Topics {
			t, err := topic.Parse(raw)
			if err != nil {
				_ = c.Send(FrameError, ErrorPayload{Code: "invalid_topic", Message: err.Error()})
				continue
			}
			c.hub.Unsubscribe(c, t)
			_ = c.Send(FrameUnsubscribed, map[string]topic.Topic{"topic": t})
		}

	case MsgPing:
		_ = c.Send(FramePong, nil)

	default:
		if c.hub.handler == nil {
			_ = c.Send(FrameError, ErrorPayload{Code: "unsupported", Message: fmt.Sprintf("unsupported message type %q", msg.Type)})
			return
		}
		c.hub.handler.HandleMessage(c, msg)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case o := <-c.send:
			if o.topic != "" && !c.Subscribed(o.topic) {
				c.hub.metrics.dropped.WithLabelValues(dropNotMember).Inc()
				continue
			}

			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, o.data); err != nil {
				c.logger.Warn("websocket write failed", zap.Error(err))
				c.shutdown(ReasonWriteError)
				return
			}

		case <-ticker.C:
			if c.heartbeatMissed() && c.missed >= c.hub.cfg.MaxMissedHeartbeats {
				c.closeStale()
				return
			}

			now := time.Now()
			if err := c.ws.WriteControl(websocket.PingMessage, nil, now.Add(c.hub.cfg.WriteWait)); err != nil {
				c.logger.Warn("websocket ping failed", zap.Error(err))
				c.shutdown(ReasonWriteError)
				return
			}
			c.lastPingAt = now.UnixNano()
		}
	}
}

func (c *Conn) closeStale() {
	c.hub.metrics.stale.Inc()
	c.logger.Info("closing stale connection", zap.Int("missed_heartbeats", c.missed))

	// Best effort: the peer is probably gone.
	if data, err := json.Marshal(Frame{Type: FrameDisconnected, Payload: DisconnectPayload{Reason: ReasonStale}}); err == nil {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
		_ = c.ws.WriteMessage(websocket.TextMessage, data)
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ReasonStale),
		time.Now().Add(c.hub.cfg.WriteWait))

	c.shutdown(ReasonStale)
}

// shutdown unsubscribes the connection everywhere and fires the disconnect hook once.
func (c *Conn) shutdown(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		topics := make([]topic.Topic, 0, len(c.topics))
		for t := range c.topics {
			topics = append(topics, t)
		}
		c.topics = make(map[topic.Topic]struct{})
		c.mu.Unlock()

		c.hub.remove(c, topics)
		close(c.done)
		_ = c.ws.Close()

		c.logger.Info("client disconnected", zap.String("reason", reason))

		if c.hub.handler != nil {
			c.hub.handler.HandleDisconnect(c, reason)
		}
	})
}
