// Package notify tells customers and downstream systems about placed orders
// and status changes. Delivery is best effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"

	"storefront/internal/model"
)

// Notifier receives order lifecycle events after they are committed.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *model.Order) error
	OrderStatusChanged(ctx context.Context, change model.StatusChange) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) OrderPlaced(context.Context, *model.Order) error               { return nil }
func (Nop) OrderStatusChanged(context.Context, model.StatusChange) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) OrderPlaced(ctx context.Context, order *model.Order) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderPlaced(ctx, order))
	}
	return errors.Join(errs...)
}

func (m Multi) OrderStatusChanged(ctx context.Context, change model.StatusChange) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderStatusChanged(ctx, change))
	}
	return errors.Join(errs...)
}
