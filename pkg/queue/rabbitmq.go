// Package queue carries job envelopes and job results over RabbitMQ.
package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kdeps/kxlate/pkg/logging"
)

// Publisher sends one message to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg amqp.Publishing) error
}

// Consumer reads job envelopes from a durable queue, one unacknowledged
// message at a time.
type Consumer struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Queue   string
	logger  *logging.Logger
}

// NewConsumer connects and declares queueName.
func NewConsumer(amqpURL, queueName string, logger *logging.Logger) (*Consumer, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set QoS: %w", err)
	}

	return &Consumer{Conn: conn, Channel: ch, Queue: queueName, logger: logger}, nil
}

// Consume starts delivering messages with manual acknowledgement.
func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.Channel.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
}

// Close releases the channel and connection.
func (c *Consumer) Close() error {
	if c.Channel != nil {
		if err := c.Channel.Close(); err != nil {
			c.logger.Debug("failed to close channel", "error", err)
		}
	}
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil {
			return err
		}
	}
	c.logger.Info("RabbitMQ consumer closed", "queue", c.Queue)
	return nil
}

// Producer publishes to durable queues, declaring them on first use.
type Producer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// NewProducer connects to amqpURL.
func NewProducer(amqpURL string) (*Producer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &Producer{conn: conn, ch: ch, declared: map[string]bool{}}, nil
}

// Publish implements Publisher.
func (p *Producer) Publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	if !p.declared[queue] {
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		p.declared[queue] = true
	}

	if msg.ContentType == "" {
		msg.ContentType = "application/json"
	}
	msg.DeliveryMode = amqp.Persistent

	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Producer) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
