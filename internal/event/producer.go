package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
	TopicOrderPlaced = "storefront.order.placed"
)

const source = "storefront"

// CartUpdatedPayload describes the cart after a mutation.
type CartUpdatedPayload struct {
	SessionID string `json:"session_id"`
	ItemCount int    `json:"item_count"`
	Subtotal  int64  `json:"subtotal"`
}

// CartClearedPayload marks a cart emptied by the shopper or by checkout.
type CartClearedPayload struct {
	SessionID string `json:"session_id"`
}

// OrderPlacedPayload is emitted once an order has been persisted.
type OrderPlacedPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	ItemCount   int    `json:"item_count"`
}

// Publisher is the outbound event port for the storefront.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, cart domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID string) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewProducer creates a Kafka-backed event producer.
func NewProducer(producer *kafka.Producer, log *slog.Logger) *Producer {
	return &Producer{producer: producer, logger: log}
}

func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, cart domain.Cart) error {
	payload := CartUpdatedPayload{
		SessionID: sessionID,
		ItemCount: cart.Count(),
		Subtotal:  cart.Subtotal(),
	}
	return p.publish(ctx, TopicCartUpdated, "cart.updated", sessionID, "cart", payload)
}

func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	payload := CartClearedPayload{SessionID: sessionID}
	return p.publish(ctx, TopicCartCleared, "cart.cleared", sessionID, "cart", payload)
}

func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload := OrderPlacedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		ItemCount:   len(order.Items),
	}
	return p.publish(ctx, TopicOrderPlaced, "order.placed", order.ID, "order", payload)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, payload any) error {
	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, payload)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt = evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	p.logger.InfoContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// NoopPublisher discards events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishCartUpdated(context.Context, string, domain.Cart) error { return nil }
func (NoopPublisher) PublishCartCleared(context.Context, string) error              { return nil }
func (NoopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error       { return nil }
