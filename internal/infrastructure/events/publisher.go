package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/messaging"
)

const routingPrefix = "ticketing.events."

// Publisher sends domain events to the topic exchange, one routing key per
// event type: ticketing.events.<event_type>.
type Publisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewPublisher(rabbitmq *messaging.RabbitMQ) domain.MessagePublisher {
	return &Publisher{rabbitmq: rabbitmq}
}

func (p *Publisher) PublishDomainEvent(ctx context.Context, event *domain.DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode domain event: %w", err)
	}
	return p.rabbitmq.Publish(ctx, routingPrefix+event.EventType, body)
}
