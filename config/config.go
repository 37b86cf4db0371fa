package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":9090"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	// IANA zone the venues' civil dates and times are expressed in.
	Timezone string `envconfig:"TIMEZONE" default:"UTC"`

	// Websocket hub
	HeartbeatInterval   time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"25s"`
	MaxMissedHeartbeats int           `envconfig:"MAX_MISSED_HEARTBEATS" default:"2"`
	SendBuffer          int           `envconfig:"SEND_BUFFER" default:"256"`
	AllowedOrigins      []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Notifications
	NotificationCap         int           `envconfig:"NOTIFICATION_CAP" default:"5"`
	NotificationDedupWindow time.Duration `envconfig:"NOTIFICATION_DEDUP_WINDOW" default:"30m"`

	// Snapshots come from Postgres when DATABASE_URL is set, otherwise from the booking API.
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	BookingAPIURL   string        `envconfig:"BOOKING_API_URL"`
	BookingAPIToken string        `envconfig:"BOOKING_API_TOKEN"`
	SnapshotTimeout time.Duration `envconfig:"SNAPSHOT_TIMEOUT" default:"10s"`
	SnapshotTTL     time.Duration `envconfig:"SNAPSHOT_TTL" default:"5s"`

	// RabbitMQ. Without a URL events only arrive through the webhook.
	RabbitURL      string   `envconfig:"RABBIT_URL"`
	RabbitExchange string   `envconfig:"RABBIT_EXCHANGE" default:"booking.exchange"`
	RabbitQueue    string   `envconfig:"RABBIT_QUEUE" default:"realtime.events.q"`
	RabbitBindings []string `envconfig:"RABBIT_BINDINGS" default:"booking.*,slot.*,notification.*"`
	RabbitPrefetch int      `envconfig:"RABBIT_PREFETCH" default:"16"`
	RabbitDLX      string   `envconfig:"RABBIT_DLX"`

	// Redis fan-out between instances. Disabled without an address.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisChannel  string        `envconfig:"REDIS_CHANNEL" default:"realtime:frames"`
	RelayTimeout  time.Duration `envconfig:"RELAY_TIMEOUT" default:"2s"`
}

// Load reads an optional .env file, then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("HEARTBEAT_INTERVAL must be positive"))
	}
	if c.MaxMissedHeartbeats < 1 {
		errs = append(errs, errors.New("MAX_MISSED_HEARTBEATS must be at least 1"))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, errors.New("SEND_BUFFER must be at least 1"))
	}
	if c.NotificationCap < 1 {
		errs = append(errs, errors.New("NOTIFICATION_CAP must be at least 1"))
	}
	if c.NotificationDedupWindow <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_DEDUP_WINDOW must be positive"))
	}
	if c.SnapshotTimeout <= 0 {
		errs = append(errs, errors.New("SNAPSHOT_TIMEOUT must be positive"))
	}
	if c.SnapshotTTL < 0 {
		errs = append(errs, errors.New("SNAPSHOT_TTL must not be negative"))
	}
	if c.DatabaseURL == "" && c.BookingAPIURL == "" {
		errs = append(errs, errors.New("one of DATABASE_URL or BOOKING_API_URL is required"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
