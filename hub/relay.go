package hub

import (
	"context"

	"github.com/hanksha/field-booking-realtime/topic"
)

// Relay forwards published frames to other hub instances.
type Relay interface {
	Publish(ctx context.Context, t topic.Topic, data []byte) error
	// Subscribe blocks, calling deliver for frames published by other instances,
	// until ctx is done.
	Subscribe(ctx context.Context, deliver func(t topic.Topic, data []byte)) error
}
