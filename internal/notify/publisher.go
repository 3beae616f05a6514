// Package notify emits storefront notification events. It only publishes;
// rendering and delivering the actual emails or payment links belongs to the
// downstream notification service.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

const (
	EventOrderPaid       = "order.paid"
	EventAwaitingPayment = "order.awaiting_payment"
)

// Event is the notification envelope published to Pub/Sub.
type Event struct {
	Type        string    `json:"type"`
	TenantID    string    `json:"tenant_id"`
	OrderID     string    `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	Currency    string    `json:"currency"`
	Total       string    `json:"total"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Publisher emits order lifecycle events.
type Publisher struct {
	topic messagePublisher
	logg  *logger.Logger
}

// NewPublisher wraps a Pub/Sub publisher handle.
func NewPublisher(topic messagePublisher, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("notification topic publisher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Publisher{topic: topic, logg: logg}, nil
}

// OrderPaid announces a settled order.
func (p *Publisher) OrderPaid(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, EventOrderPaid, order)
}

// AwaitingPayment announces an order waiting for a manual payment link.
func (p *Publisher) AwaitingPayment(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, EventAwaitingPayment, order)
}

func (p *Publisher) publish(ctx context.Context, eventType string, order *models.Order) error {
	event := Event{
		Type:        eventType,
		TenantID:    order.TenantID,
		OrderID:     order.ID.String(),
		OrderNumber: order.Number,
		Currency:    order.Currency,
		Total:       order.Total.String(),
		OccurredAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": eventType},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"event_type":   eventType,
		"order_id":     event.OrderID,
		"order_number": event.OrderNumber,
	})
	p.logg.Info(ctx, "notification event published")
	return nil
}
