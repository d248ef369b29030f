// Package mq wraps the RabbitMQ connection used for the operation-log
// pipeline.
package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/platform/config"
)

// Client holds an AMQP connection and channel.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  *config.RabbitMQConfig
}

// NewClient dials RabbitMQ, retrying per the configured policy, and
// declares the operation-log topology.
func NewClient(cfg *config.RabbitMQConfig) (*Client, error) {
	var conn *amqp.Connection
	var err error

	attempts := cfg.ConnectRetry
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		log.Warn().
			Err(err).
			Int("attempt", i+1).
			Int("max_attempts", attempts).
			Msg("RabbitMQ connection failed, retrying")
		time.Sleep(cfg.RetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Client{conn: conn, ch: ch, cfg: cfg}
	if err := c.declareTopology(); err != nil {
		c.Close()
		return nil, err
	}

	log.Info().
		Str("exchange", cfg.Exchange).
		Str("queue", cfg.Queue).
		Msg("RabbitMQ connection established")

	return c, nil
}

func (c *Client) declareTopology() error {
	if err := c.ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := c.ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.ch.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Publish sends a persistent JSON message to the configured exchange.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.ch.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Consume delivers queue messages to handler until ctx is cancelled.
// A nil handler result acks the delivery; an error nacks it with
// requeue so it is redelivered.
func (c *Client) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	deliveries, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := handler(ctx, d.Body); err != nil {
				log.Error().Err(err).Msg("Message handling failed, requeueing")
				if nackErr := d.Nack(false, true); nackErr != nil {
					log.Error().Err(nackErr).Msg("Failed to nack message")
				}
				continue
			}
			if ackErr := d.Ack(false); ackErr != nil {
				log.Error().Err(ackErr).Msg("Failed to ack message")
			}
		}
	}
}

// Close releases the channel and connection.
func (c *Client) Close() {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close rabbitmq channel")
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close rabbitmq connection")
		}
	}
}
