package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Sink receives ledger events after the account lock has been released.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Publisher appends events to a Redis stream.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ Sink = (*Publisher)(nil)

// NewPublisher writes to stream. A positive maxLen caps the stream
// approximately (XADD MAXLEN ~).
func NewPublisher(client *redis.Client, stream string, maxLen int64) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event": eventJSON,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close is a no-op: the client belongs to whoever passed it in.
func (p *Publisher) Close() error { return nil }

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
