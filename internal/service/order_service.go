package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 100
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	notifier  notify.Notifier
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	notifier notify.Notifier,
	logger zerolog.Logger,
) OrderService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &orderService{
		orderRepo: orderRepo,
		notifier:  notifier,
		now:       time.Now,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// List returns the identity's orders, newest first.
func (s *orderService) List(ctx context.Context, id model.Identity, limit, offset int) ([]model.Order, error) {
	if id.IsZero() {
		return []model.Order{}, nil
	}
	if limit <= 0 {
		limit = defaultOrderLimit
	}
	if limit > maxOrderLimit {
		limit = maxOrderLimit
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.orderRepo.ListByIdentity(ctx, id, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// Get returns one order placed by id. Orders of other customers are reported as not found.
func (s *orderService) Get(ctx context.Context, id model.Identity, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}
	if !order.OwnedBy(id) {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("identity", id.Key()).
			Msg("order requested by another customer")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// UpdateStatus sets the status of one order.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.StatusChange, error) {
	changes, err := s.BatchUpdateStatus(ctx, []uuid.UUID{orderID}, status)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		// Committed but not reloadable; report what was written.
		next, _ := model.ParseOrderStatus(status)
		return &model.StatusChange{Order: model.Order{ID: orderID, Status: next}}, nil
	}
	return &changes[0], nil
}

// BatchUpdateStatus sets the status of several orders in one transaction.
// An unknown id aborts the whole batch.
func (s *orderService) BatchUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, status string) ([]model.StatusChange, error) {
	next, err := model.ParseOrderStatus(status)
	if err != nil {
		s.logger.Debug().Str("status", status).Msg("unknown order status rejected")
		return nil, err
	}

	return s.apply(ctx, orderIDs, "status_update", func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.OrderStatus, error) {
		return s.orderRepo.UpdateStatus(ctx, tx, id, next)
	})
}

// MarkPaid records payment on several orders and moves them to processing.
func (s *orderService) MarkPaid(ctx context.Context, orderIDs []uuid.UUID) ([]model.StatusChange, error) {
	paidAt := s.now().UTC()
	return s.apply(ctx, orderIDs, "mark_paid", func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.OrderStatus, error) {
		return s.orderRepo.MarkPaid(ctx, tx, id, paidAt)
	})
}

type orderMutation func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.OrderStatus, error)

// apply runs mutate for every distinct id in one transaction, then notifies once per order.
// Rows are locked in ascending id order.
func (s *orderService) apply(ctx context.Context, orderIDs []uuid.UUID, action string, mutate orderMutation) ([]model.StatusChange, error) {
	ids := sortedIDs(distinct(orderIDs))
	if len(ids) == 0 {
		return nil, &model.ValidationError{Fields: []model.FieldError{
			{Field: "orderIds", Message: "is required"},
		}}
	}

	previous := make([]model.OrderStatus, len(ids))
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		for i, id := range ids {
			prev, err := mutate(ctx, tx, id)
			if err != nil {
				return err
			}
			previous[i] = prev
		}
		return nil
	})
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			s.logger.Error().Err(err).Str("action", action).Int("count", len(ids)).Msg("failed to update orders")
			return nil, fmt.Errorf("failed to update orders: %w", err)
		}
		s.logger.Warn().Err(err).Str("action", action).Msg("order update rejected")
		return nil, err
	}

	// The change is committed; reloading and notifying are best effort per order.
	changes := make([]model.StatusChange, 0, len(ids))
	for i, id := range ids {
		order, err := s.orderRepo.GetByID(ctx, id)
		if err != nil || order == nil {
			s.logger.Warn().Err(err).
				Str("order_id", id.String()).
				Str("action", action).
				Msg("updated order could not be reloaded, notification skipped")
			continue
		}

		change := model.StatusChange{Order: *order, Previous: previous[i]}
		if err := s.notifier.OrderStatusChanged(ctx, change); err != nil {
			s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("status notification not delivered")
		}
		changes = append(changes, change)
	}

	s.logger.Info().
		Str("action", action).
		Int("count", len(ids)).
		Int("reloaded", len(changes)).
		Msg("orders updated")

	return changes, nil
}

func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
