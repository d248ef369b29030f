package oplog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/digitlabs/pm-sys/internal/platform/mq"
)

// Publisher sends operation-log messages over the broker.
type Publisher struct {
	client *mq.Client
}

// NewPublisher creates a Publisher.
func NewPublisher(client *mq.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish validates, encodes and sends one message.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid operation log message: %w", err)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode operation log message: %w", err)
	}
	return p.client.Publish(ctx, body)
}
