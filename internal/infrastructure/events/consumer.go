package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/logging"
	"github.com/ticketforge/ticketing-api/shared/messaging"
)

const (
	issuanceQueue      = "ticketing.issuance-results"
	issuanceRoutingKey = "ticketing.issuance.result"
)

// IssuanceHandler completes a two-phase event creation
type IssuanceHandler interface {
	HandleIssuanceResult(ctx context.Context, result domain.IssuanceResult) error
}

// IssuanceConsumer receives collection issuance outcomes from the chain
// gateway and applies them to the ledger. Redeliveries are safe because the
// handler is idempotent on registration state.
type IssuanceConsumer struct {
	rabbitmq *messaging.RabbitMQ
	handler  IssuanceHandler
	logger   *logging.Logger
}

func NewIssuanceConsumer(rabbitmq *messaging.RabbitMQ, handler IssuanceHandler, logger *logging.Logger) *IssuanceConsumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &IssuanceConsumer{rabbitmq: rabbitmq, handler: handler, logger: logger}
}

// Start blocks consuming issuance results until the context is cancelled
func (c *IssuanceConsumer) Start(ctx context.Context) error {
	queue := messaging.QueueConfig{
		Name:        issuanceQueue,
		RoutingKeys: []string{issuanceRoutingKey},
		Durable:     true,
	}
	return c.rabbitmq.Consume(ctx, queue, c.handle)
}

func (c *IssuanceConsumer) handle(ctx context.Context, delivery amqp.Delivery) error {
	var result domain.IssuanceResult
	if err := json.Unmarshal(delivery.Body, &result); err != nil {
		// Malformed messages never become valid; drop them.
		c.logger.WithError(err).Error("dropping malformed issuance result")
		return nil
	}
	if result.EventID == "" {
		c.logger.Error("dropping issuance result without event id")
		return nil
	}

	if err := c.handler.HandleIssuanceResult(ctx, result); err != nil {
		return fmt.Errorf("failed to apply issuance result for %s: %w", result.EventID, err)
	}

	c.logger.WithField("event_id", result.EventID).Info("issuance result applied")
	return nil
}
