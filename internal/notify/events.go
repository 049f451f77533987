package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Event types published on the order topic.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the JSON message value. Messages are keyed by order id.
type OrderEvent struct {
	Type       string             `json:"type"`
	OrderID    uuid.UUID          `json:"orderId"`
	UserID     *uuid.UUID         `json:"userId,omitempty"`
	Status     model.OrderStatus  `json:"status"`
	Previous   *model.OrderStatus `json:"previous,omitempty"`
	Paid       bool               `json:"paid"`
	Total      decimal.Decimal    `json:"total"`
	Lines      []EventLine        `json:"lines,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// EventLine is one purchased variant.
type EventLine struct {
	VariantID uuid.UUID       `json:"variantId"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Events publishes order events to Kafka.
type Events struct {
	writer messageWriter
	now    func() time.Time
	logger zerolog.Logger
}

// NewEvents creates a publisher writing to topic on brokers.
func NewEvents(brokers []string, topic string, logger zerolog.Logger) *Events {
	return newEvents(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newEvents(w messageWriter, logger zerolog.Logger) *Events {
	return &Events{
		writer: w,
		now:    time.Now,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

func (e *Events) publish(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: data,
		Time:  event.OccurredAt,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.logger.Error().Err(err).Str("type", event.Type).Str("order_id", event.OrderID.String()).Msg("failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// OrderPlaced publishes order.created.
func (e *Events) OrderPlaced(ctx context.Context, order *model.Order) error {
	lines := make([]EventLine, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = EventLine{VariantID: l.VariantID, SKU: l.SKU, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}

	return e.publish(ctx, OrderEvent{
		Type:       EventOrderCreated,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Paid:       order.Paid,
		Total:      order.Total,
		Lines:      lines,
		OccurredAt: e.now().UTC(),
	})
}

// OrderStatusChanged publishes order.status_changed.
func (e *Events) OrderStatusChanged(ctx context.Context, change model.StatusChange) error {
	previous := change.Previous
	return e.publish(ctx, OrderEvent{
		Type:       EventOrderStatusChanged,
		OrderID:    change.Order.ID,
		UserID:     change.Order.UserID,
		Status:     change.Order.Status,
		Previous:   &previous,
		Paid:       change.Order.Paid,
		Total:      change.Order.Total,
		OccurredAt: e.now().UTC(),
	})
}

// Close flushes and closes the writer.
func (e *Events) Close() error {
	return e.writer.Close()
}
