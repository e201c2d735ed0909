package messaging

import (
	"context"
	"encoding/json"
)

// Broker is the pub/sub transport the outbox drains into. Implementations
// own their connection lifecycle; Close releases it.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published for every outbox event. Payload carries
// the event body verbatim as it was written in the originating transaction.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
