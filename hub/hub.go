package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hanksha/field-booking-realtime/topic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrConnNotFound   = errors.New("connection not found")
	ErrSlowConsumer   = errors.New("connection send buffer full")
	ErrTopicForbidden = errors.New("topic not allowed for this connection")
)

type Config struct {
	HeartbeatInterval   time.Duration
	MaxMissedHeartbeats int
	HandshakeTimeout    time.Duration
	WriteWait           time.Duration
	SendBuffer          int
	MaxMessageSize      int64
	RelayTimeout        time.Duration
	RelayBuffer         int
	CheckOrigin         func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:   25 * time.Second,
		MaxMissedHeartbeats: 2,
		HandshakeTimeout:    10 * time.Second,
		WriteWait:           10 * time.Second,
		SendBuffer:          256,
		MaxMessageSize:      64 * 1024,
		RelayTimeout:        2 * time.Second,
		RelayBuffer:         1024,
	}
}

// MessageHandler receives connection lifecycle callbacks and every client frame
// the hub does not handle itself.
type MessageHandler interface {
	HandleConnect(c *Conn)
	HandleMessage(c *Conn, msg ClientMessage)
	HandleDisconnect(c *Conn, reason string)
}

// TopicGuard decides whether a connection may subscribe to a topic.
type TopicGuard func(c *Conn, t topic.Topic) bool

type Option func(*Hub)

func WithHandler(h MessageHandler) Option { return func(hub *Hub) { hub.handler = h } }

func WithTopicGuard(g TopicGuard) Option { return func(hub *Hub) { hub.guard = g } }

func WithRelay(r Relay) Option { return func(hub *Hub) { hub.relay = r } }

func WithMetrics(m *Metrics) Option { return func(hub *Hub) { hub.metrics = m } }

// Hub owns every websocket connection and the topic subscriber sets. Each topic
// has its own lock; the publish path never takes a hub-wide lock.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	topics   sync.Map // topic.Topic -> *subscribers
	conns    sync.Map // conn id -> *Conn
	handler  MessageHandler
	guard    TopicGuard
	relay    Relay
	outbox   chan relayed
	metrics  *Metrics
	logger   *zap.Logger
}

type relayed struct {
	topic topic.Topic
	data  []byte
}

type subscribers struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	dead  bool // removed from the registry; writers must retry
}

func New(cfg Config, logger *zap.Logger, opts ...Option) *Hub {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.MaxMissedHeartbeats <= 0 {
		cfg.MaxMissedHeartbeats = def.MaxMissedHeartbeats
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RelayTimeout <= 0 {
		cfg.RelayTimeout = def.RelayTimeout
	}
	if cfg.RelayBuffer <= 0 {
		cfg.RelayBuffer = def.RelayBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: cfg.HandshakeTimeout,
			CheckOrigin:      cfg.CheckOrigin,
		},
		logger: logger.With(zap.String("component", "hub")),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.metrics == nil {
		h.metrics = NewMetrics(nil)
	}
	if h.relay != nil {
		h.outbox = make(chan relayed, cfg.RelayBuffer)
	}

	return h
}

// Run consumes the relay and drains the relay outbox until ctx is done. Without a
// relay it just waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h.drainOutbox(gctx)
		return nil
	})

	g.Go(func() error {
		err := h.relay.Subscribe(gctx, func(t topic.Topic, data []byte) { h.deliverLocal(t, data) })
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("relay subscription ended: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (h *Hub) drainOutbox(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-h.outbox:
			pctx, cancel := context.WithTimeout(ctx, h.cfg.RelayTimeout)
			err := h.relay.Publish(pctx, m.topic, m.data)
			cancel()
			if err != nil {
				h.metrics.dropped.WithLabelValues(dropRelayError).Inc()
				h.logger.Warn("relay publish failed", zap.String("topic", m.topic.String()), zap.Error(err))
			}
		}
	}
}

// Connect upgrades the request and starts the connection's pumps. It returns once
// the handshake is complete; the caller can wait on Conn.Done.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request, clientID string) (*Conn, error) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}

	c := &Conn{
		id:       uuid.NewString(),
		clientID: clientID,
		ws:       ws,
		hub:      h,
		send:     make(chan outbound, h.cfg.SendBuffer),
		topics:   make(map[topic.Topic]struct{}),
		done:     make(chan struct{}),
	}
	c.logger = h.logger.With(zap.String("conn_id", c.id), zap.String("client_id", clientID))
	c.touch()

	h.conns.Store(c.id, c)
	h.metrics.connections.Inc()

	go c.writePump()

	c.logger.Info("client connected")

	if h.handler != nil {
		h.handler.HandleConnect(c)
	}

	go c.readPump()

	return c, nil
}

func (h *Hub) Subscribe(c *Conn, t topic.Topic) error {
	if h.guard != nil && !h.guard(c, t) {
		return fmt.Errorf("%w: %s", ErrTopicForbidden, t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	if _, ok := c.topics[t]; ok {
		return nil
	}

	for {
		v, _ := h.topics.LoadOrStore(t, &subscribers{conns: make(map[string]*Conn)})
		subs := v.(*subscribers)

		subs.mu.Lock()
		if subs.dead {
			subs.mu.Unlock()
			continue
		}
		subs.conns[c.id] = c
		subs.mu.Unlock()
		break
	}

	c.topics[t] = struct{}{}
	h.metrics.subscriptions.Inc()

	return nil
}

// Unsubscribe removes c from t. Frames already queued for other topics are kept.
func (h *Hub) Unsubscribe(c *Conn, t topic.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.topics[t]; !ok {
		return
	}

	delete(c.topics, t)
	h.removeSubscriber(c, t)
}

// Publish fans the frame out to every local subscriber of t and queues it for
// the relay.
// A topic without subscribers is a no-op. It returns how many connections got it.
func (h *Hub) Publish(t topic.Topic, frameType string, payload any) (int, error) {
	data, err := json.Marshal(Frame{Type: frameType, Topic: t, Payload: payload})
	if err != nil {
		h.metrics.dropped.WithLabelValues(dropMarshal).Inc()
		return 0, fmt.Errorf("failed to marshal %s frame: %w", frameType, err)
	}

	h.metrics.published.WithLabelValues(t.Kind()).Inc()

	delivered := h.deliverLocal(t, data)

	if h.outbox != nil {
		select {
		case h.outbox <- relayed{topic: t, data: data}:
		default:
			h.metrics.dropped.WithLabelValues(dropRelayFull).Inc()
			h.logger.Warn("relay outbox full, frame not relayed", zap.String("topic", t.String()))
		}
	}

	return delivered, nil
}

// Send pushes a frame straight to one connection, bypassing topics.
func (h *Hub) Send(connID string, frameType string, payload any) error {
	v, ok := h.conns.Load(connID)
	if !ok {
		return ErrConnNotFound
	}
	return v.(*Conn).Send(frameType, payload)
}

func (h *Hub) Conn(connID string) (*Conn, bool) {
	v, ok := h.conns.Load(connID)
	if !ok {
		return nil, false
	}
	return v.(*Conn), true
}

// Subscribers counts local subscribers of t.
func (h *Hub) Subscribers(t topic.Topic) int {
	v, ok := h.topics.Load(t)
	if !ok {
		return 0
	}
	subs := v.(*subscribers)
	subs.mu.RLock()
	defer subs.mu.RUnlock()
	return len(subs.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.conns.Range(func(_, v any) bool {
		c := v.(*Conn)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ReasonServerShutdown),
			time.Now().Add(h.cfg.WriteWait))
		c.shutdown(ReasonServerShutdown)
		return true
	})
}

func (h *Hub) deliverLocal(t topic.Topic, data []byte) int {
	v, ok := h.topics.Load(t)
	if !ok {
		return 0
	}

	subs := v.(*subscribers)
	subs.mu.RLock()
	defer subs.mu.RUnlock()

	delivered := 0
	for _, c := range subs.conns {
		switch err := c.enqueue(outbound{topic: t, data: data}); {
		case err == nil:
			delivered++
			h.metrics.delivered.WithLabelValues(t.Kind()).Inc()
		case errors.Is(err, ErrConnClosed):
			h.metrics.dropped.WithLabelValues(dropNoConn).Inc()
			c.logger.Debug("dropped frame for closed connection", zap.String("topic", t.String()))
		default:
			h.metrics.dropped.WithLabelValues(dropSlow).Inc()
			c.logger.Warn("dropped frame", zap.String("topic", t.String()), zap.Error(err))
		}
	}

	return delivered
}

// removeSubscriber expects c.mu to be held or c to be closed.
func (h *Hub) removeSubscriber(c *Conn, t topic.Topic) {
	v, ok := h.topics.Load(t)
	if !ok {
		return
	}

	subs := v.(*subscribers)
	subs.mu.Lock()
	if _, ok := subs.conns[c.id]; ok {
		delete(subs.conns, c.id)
		h.metrics.subscriptions.Dec()
	}
	if len(subs.conns) == 0 && !subs.dead {
		subs.dead = true
		h.topics.CompareAndDelete(t, subs)
	}
	subs.mu.Unlock()
}

func (h *Hub) remove(c *Conn, topics []topic.Topic) {
	for _, t := range topics {
		h.removeSubscriber(c, t)
	}
	if _, ok := h.conns.LoadAndDelete(c.id); ok {
		h.metrics.connections.Dec()
	}
}
