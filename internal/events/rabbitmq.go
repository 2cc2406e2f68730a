package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the default queue name for lifecycle events
	DefaultQueueName = "task_lifecycle_events"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "task_lifecycle_events_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "task_events"
	// routingKey routes lifecycle events to the main queue
	routingKey = "lifecycle"
)

// RabbitMQBus implements Bus using RabbitMQ
type RabbitMQBus struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueName    string
	dlqName      string
	exchangeName string
}

// NewRabbitMQBus creates a new RabbitMQ event bus
func NewRabbitMQBus(amqpURL string) (*RabbitMQBus, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	bus := &RabbitMQBus{
		conn:         conn,
		channel:      ch,
		queueName:    DefaultQueueName,
		dlqName:      DefaultDLQName,
		exchangeName: DefaultExchangeName,
	}

	if err := bus.setup(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return bus, nil
}

// setup configures the exchange, the main queue and its dead letter queue
func (b *RabbitMQBus) setup() error {
	err := b.channel.ExchangeDeclare(
		b.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare dead letter queue
	_, err = b.channel.QueueDeclare(
		b.dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{},
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = b.channel.QueueBind(
		b.dlqName,
		"dlq", // routing key
		b.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Declare main queue with DLQ
	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    b.exchangeName,
		"x-dead-letter-routing-key": "dlq",
	}
	_, err = b.channel.QueueDeclare(
		b.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = b.channel.QueueBind(
		b.queueName,
		routingKey,
		b.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	return nil
}

// Publish adds an event to the bus
func (b *RabbitMQBus) Publish(ctx context.Context, event *Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         eventJSON,
		DeliveryMode: amqp.Persistent, // Make message persistent
		MessageId:    event.ID.String(),
		Timestamp:    event.OccurredAt,
	}

	err = b.channel.PublishWithContext(
		ctx,
		b.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Consume returns a channel of messages from the bus using async delivery
func (b *RabbitMQBus) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	// Dedicated channel for consuming, separate from the publisher channel
	consumeCh, err := b.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	// prefetchCount=1 means fair dispatch across scheduler instances
	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		if closeErr := consumeCh.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		b.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack (false = manual ack required)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		if closeErr := consumeCh.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() {
			if err := consumeCh.Close(); err != nil {
				_ = err
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				var event Event
				if err := json.Unmarshal(delivery.Body, &event); err != nil {
					// Invalid message, send to DLQ
					_ = delivery.Nack(false, false)
					errChan <- fmt.Errorf("failed to unmarshal event: %w", err)
					continue
				}

				msg := &Message{
					Event:       &event,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}

				select {
				case <-ctx.Done():
					// Context cancelled, requeue the message
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// Close closes the bus connection
func (b *RabbitMQBus) Close() error {
	var err error
	if b.channel != nil {
		err = b.channel.Close()
	}
	if b.conn != nil {
		if closeErr := b.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// HealthCheck verifies the bus connection is healthy
func (b *RabbitMQBus) HealthCheck(ctx context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	if b.channel == nil || b.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel closed")
	}
	return nil
}

var _ Bus = (*RabbitMQBus)(nil)
