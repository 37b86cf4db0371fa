package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hanksha/field-booking-realtime/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrDeliveriesClosed = errors.New("rabbitmq deliveries channel closed")

// EventHandler applies one inbound event.
type EventHandler interface {
	Handle(ctx context.Context, ev events.Event) error
}

type ConsumerConfig struct {
	URL         string
	Exchange    string
	Queue       string
	Bindings    []string
	Prefetch    int
	DLXName     string // optional dead-letter exchange for rejected deliveries
	ConsumerTag string
	RetryDelay  time.Duration
}

// Consumer reads booking events from a RabbitMQ topic exchange. The routing key
// is the event kind and the body its JSON payload.
type Consumer struct {
	cfg    ConsumerConfig
	logger *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = "booking.exchange"
	}
	if len(cfg.Bindings) == 0 {
		cfg.Bindings = []string{"booking.*", "slot.*", "notification.*"}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 16
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{cfg: cfg, logger: logger.With(zap.String("component", "consumer"))}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}

	fail := func(err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	args := amqp.Table{}
	if c.cfg.DLXName != "" {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlx failed: %w", err))
		}
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange %s failed: %w", c.cfg.Exchange, err))
	}

	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fail(fmt.Errorf("declare queue failed: %w", err))
	}

	for _, key := range c.cfg.Bindings {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fail(fmt.Errorf("bind queue to exchange=%s key=%s failed: %w", c.cfg.Exchange, key, err))
		}
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("set qos failed: %w", err))
	}

	c.cfg.Queue = q.Name
	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Serve connects and consumes until ctx is done, reconnecting after failures.
func (c *Consumer) Serve(ctx context.Context, handler EventHandler) error {
	for {
		err := c.Connect()
		if err == nil {
			c.logger.Info("consuming events",
				zap.String("exchange", c.cfg.Exchange),
				zap.String("queue", c.cfg.Queue),
				zap.Strings("bindings", c.cfg.Bindings))

			err = c.Run(ctx, handler)
			c.Close()
		}

		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("rabbitmq consumer stopped, retrying",
			zap.Error(err),
			zap.Duration("retry_in", c.cfg.RetryDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *Consumer) Run(ctx context.Context, handler EventHandler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

// handleDelivery acks applied events and rejects malformed ones without requeue.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler EventHandler) {
	log := c.logger.With(zap.String("routing_key", d.RoutingKey), zap.Uint64("delivery_tag", d.DeliveryTag))

	ev, err := events.Decode(events.Kind(d.RoutingKey), d.Body)
	switch {
	case errors.Is(err, events.ErrUnknownKind):
		log.Info("skipping unknown event kind")
		_ = d.Ack(false)
		return
	case err != nil:
		log.Warn("rejecting malformed event", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := handler.Handle(ctx, ev); err != nil {
		if errors.Is(err, events.ErrMalformedEvent) {
			log.Warn("rejecting event", zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		// One retry, then the broker dead-letters it.
		requeue := !d.Redelivered
		log.Error("handle event failed", zap.Error(err), zap.Bool("requeue", requeue))
		_ = d.Nack(false, requeue)
		return
	}

	_ = d.Ack(false)
}
