package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig holds the configuration for RabbitMQ
type RabbitMQConfig struct {
	RabbitMQHost     string `json:"rabbitmq_host"`
	RabbitMQPort     int    `json:"rabbitmq_port"`
	RabbitMQUser     string `json:"rabbitmq_user"`
	RabbitMQPassword string `json:"rabbitmq_password"`
	RabbitMQExchange string `json:"rabbitmq_exchange"`
}

// QueueConfig defines queue configuration
type QueueConfig struct {
	Name       string   `json:"name"`
	RoutingKeys []string `json:"routing_keys"`
	Durable    bool     `json:"durable"`
	AutoDelete bool     `json:"auto_delete"`
}

// MessageHandler defines the signature for message handlers
type MessageHandler func(context.Context, amqp.Delivery) error

// RabbitMQ wraps the AMQP connection and provides high-level operations
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  RabbitMQConfig
}

// NewRabbitMQ creates a new RabbitMQ client and declares the topic exchange
func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	rmq := &RabbitMQ{config: config}
	if err := rmq.connect(); err != nil {
		return nil, err
	}
	return rmq, nil
}

func (r *RabbitMQ) buildURL() string {
	scheme := "amqp"
	if r.config.RabbitMQPort == 5671 {
		scheme = "amqps"
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d",
		scheme,
		r.config.RabbitMQUser,
		r.config.RabbitMQPassword,
		r.config.RabbitMQHost,
		r.config.RabbitMQPort,
	)
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.DialConfig(r.buildURL(), amqp.Config{Heartbeat: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		r.config.RabbitMQExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	r.conn = conn
	r.channel = ch
	return nil
}

// Publish sends a persistent message to the configured exchange
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, body []byte) error {
	return r.channel.PublishWithContext(ctx,
		r.config.RabbitMQExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume declares the queue, binds it to the exchange for each routing key,
// and dispatches deliveries to the handler until the context is cancelled.
// Handler errors nack without requeue; duplicates are the handler's problem.
func (r *RabbitMQ) Consume(ctx context.Context, queue QueueConfig, handler MessageHandler) error {
	q, err := r.channel.QueueDeclare(queue.Name, queue.Durable, queue.AutoDelete, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue.Name, err)
	}

	for _, key := range queue.RoutingKeys {
		if err := r.channel.QueueBind(q.Name, key, r.config.RabbitMQExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", q.Name, key, err)
		}
	}

	deliveries, err := r.channel.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer on %s: %w", q.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", q.Name)
			}
			if err := handler(ctx, d); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HealthCheck verifies the connection is alive
func (r *RabbitMQ) HealthCheck(_ context.Context) error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return nil
}

// Close shuts down the channel and connection
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
