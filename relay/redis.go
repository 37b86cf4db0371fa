package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hanksha/field-booking-realtime/topic"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "realtime:frames"

// Redis shares hub publishes between instances over one pub/sub channel.
type Redis struct {
	rdb     *goredis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

type message struct {
	Origin string          `json:"origin"`
	Topic  topic.Topic     `json:"topic"`
	Data   json.RawMessage `json:"data"`
}

// NewRedis connects and pings the server.
func NewRedis(addr, password string, db int, channel string, logger *zap.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis relay connected", zap.String("addr", addr))

	return newRedis(rdb, channel, logger), nil
}

func newRedis(rdb *goredis.Client, channel string, logger *zap.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.With(zap.String("component", "relay")),
	}
}

func (r *Redis) Publish(ctx context.Context, t topic.Topic, data []byte) error {
	body, err := json.Marshal(message{Origin: r.origin, Topic: t, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode relay message: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

// Subscribe blocks until ctx is done, handing frames from other instances to deliver.
func (r *Redis) Subscribe(ctx context.Context, deliver func(t topic.Topic, data []byte)) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis channel %s closed", r.channel)
			}
			r.handle([]byte(msg.Payload), deliver)
		}
	}
}

func (r *Redis) handle(body []byte, deliver func(t topic.Topic, data []byte)) {
	var m message
	if err := json.Unmarshal(body, &m); err != nil {
		r.logger.Warn("dropping malformed relay message", zap.Error(err))
		return
	}
	if m.Origin == r.origin {
		return
	}
	if _, err := topic.Parse(string(m.Topic)); err != nil {
		r.logger.Warn("dropping relay message", zap.Error(err))
		return
	}
	deliver(m.Topic, m.Data)
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
