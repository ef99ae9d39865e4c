package pubsub

import (
	"context"
)

// Message is what travels on the bus.
type Message struct {
	// Topic is the registered topic name, e.g. "userhome.phone.verified".
	Topic string
	// UserID is the account the event concerns.
	UserID string
	// ViewID addresses one open dashboard view. Empty means every view of
	// the user.
	ViewID string
	// Payload is the JSON encoded event body.
	Payload []byte
	// Metadata holds extra key-value context.
	Metadata map[string]string
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives messages from the bus.
type Subscriber interface {
	// Subscribe starts delivering messages for topic to handler in the
	// background until ctx is cancelled or the subscriber is closed.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
