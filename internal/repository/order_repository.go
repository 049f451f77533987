package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `o.id, o.user_id, o.session_token, o.status, o.total, o.full_name, o.email,
	o.phone, o.address, o.city, o.state, o.postal_code, o.payment_method, o.transaction_id,
	o.paid, o.paid_at, o.created_at, o.updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	store
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{store: newStore(pool, logger, "order")}
}

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.SessionToken, &o.Status, &o.Total, &o.FullName, &o.Email,
		&o.Phone, &o.Address, &o.City, &o.State, &o.PostalCode, &o.PaymentMethod, &o.TransactionID,
		&o.Paid, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, session_token, status, total, full_name, email, phone,
			address, city, state, postal_code, payment_method, transaction_id, paid, paid_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := tx.Exec(ctx, query,
		o.ID, o.UserID, o.SessionToken, o.Status, o.Total, o.FullName, o.Email, o.Phone,
		o.Address, o.City, o.State, o.PostalCode, o.PaymentMethod, o.TransactionID, o.Paid, o.PaidAt,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", o.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", o.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderLines inserts the order's lines within the provided transaction.
func (r *orderRepository) CreateOrderLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_lines (id, order_id, variant_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(query, l.ID, l.OrderID, l.VariantID, l.Quantity, l.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range lines {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", lines[i].OrderID.String()).
				Str("variant_id", lines[i].VariantID.String()).
				Msg("failed to create order line")
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(lines)).
		Msg("order lines created successfully")

	return nil
}

// GetByID returns an order with its lines, or nil when absent.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orders := []model.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByIdentity returns the identity's orders, newest first, with lines.
func (r *orderRepository) ListByIdentity(ctx context.Context, id model.Identity, limit, offset int) ([]model.Order, error) {
	var (
		where string
		arg   any
	)
	switch {
	case id.UserID != nil:
		where, arg = "o.user_id = $1", *id.UserID
	case id.SessionToken != "":
		where, arg = "o.session_token = $1", id.SessionToken
	default:
		return nil, model.ErrMissingIdentity
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE `+where+`
		ORDER BY o.created_at DESC, o.id
		LIMIT $2 OFFSET $3
	`, arg, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines loads the lines of every order in one query.
func (r *orderRepository) attachLines(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Lines = []model.OrderLine{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ol.id, ol.order_id, ol.variant_id, ol.quantity, ol.unit_price, v.sku, p.name
		FROM order_lines ol
		JOIN variants v ON v.id = ol.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE ol.order_id = ANY($1)
		ORDER BY p.name, v.sku
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query order lines")
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.VariantID, &l.Quantity, &l.UnitPrice, &l.SKU, &l.ProductName); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order line row")
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order line rows")
		return fmt.Errorf("error iterating order lines: %w", err)
	}
	return nil
}

// UpdateStatus sets status and returns the previous value.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (model.OrderStatus, error) {
	var previous model.OrderStatus
	err := tx.QueryRow(ctx, `
		WITH prev AS (SELECT id, status FROM orders WHERE id = $1 FOR UPDATE)
		UPDATE orders o SET status = $2, updated_at = NOW()
		FROM prev WHERE o.id = prev.id
		RETURNING prev.status
	`, id, status).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return "", fmt.Errorf("failed to update order status: %w", err)
	}

	r.logger.Debug().
		Str("order_id", id.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("order status updated")
	return previous, nil
}

// MarkPaid records payment and moves the order to processing, returning the previous status.
func (r *orderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) (model.OrderStatus, error) {
	var previous model.OrderStatus
	err := tx.QueryRow(ctx, `
		WITH prev AS (SELECT id, status FROM orders WHERE id = $1 FOR UPDATE)
		UPDATE orders o SET paid = TRUE, paid_at = $2, status = $3, updated_at = NOW()
		FROM prev WHERE o.id = prev.id
		RETURNING prev.status
	`, id, paidAt, model.OrderStatusProcessing).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order paid")
		return "", fmt.Errorf("failed to mark order paid: %w", err)
	}
	return previous, nil
}
