package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	cartColumns = `c.id, c.user_id, c.session_token, c.created_at, c.updated_at`

	lineColumns = `cl.id, cl.cart_id, cl.variant_id, cl.quantity, cl.created_at, ` + variantColumns

	lineFrom = `FROM cart_lines cl
		JOIN variants v ON v.id = cl.variant_id
		JOIN products p ON p.id = v.product_id`
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	store
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{store: newStore(pool, logger, "cart")}
}

func scanCart(row pgx.Row) (*model.Cart, error) {
	var c model.Cart
	if err := row.Scan(&c.ID, &c.UserID, &c.SessionToken, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanLine(row pgx.Row, l *model.CartLine) error {
	v := &l.Variant
	return row.Scan(
		&l.ID, &l.CartID, &l.VariantID, &l.Quantity, &l.CreatedAt,
		&v.ID, &v.ProductID, &v.Color, &v.Size, &v.SKU, &v.Stock, &v.PriceAdjustment,
		&v.CreatedAt, &v.ProductName, &v.ProductSlug, &v.BasePrice, &v.DiscountPercent,
	)
}

// identityClause returns the WHERE fragment selecting the identity's cart and its argument.
func identityClause(id model.Identity) (string, any, error) {
	switch {
	case id.UserID != nil:
		return "c.user_id = $1", *id.UserID, nil
	case id.SessionToken != "":
		return "c.session_token = $1", id.SessionToken, nil
	}
	return "", nil, model.ErrMissingIdentity
}

func (r *cartRepository) findCart(ctx context.Context, q querier, id model.Identity, lock bool) (*model.Cart, error) {
	where, arg, err := identityClause(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + cartColumns + ` FROM carts c WHERE ` + where
	if lock {
		query += ` FOR UPDATE`
	}

	cart, err := scanCart(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return cart, nil
}

// FindByIdentity returns the identity's cart, or nil when it has none.
func (r *cartRepository) FindByIdentity(ctx context.Context, id model.Identity) (*model.Cart, error) {
	return r.findCart(ctx, r.pool, id, false)
}

// LockByIdentity locks and returns the identity's cart, or nil when it has none.
func (r *cartRepository) LockByIdentity(ctx context.Context, tx pgx.Tx, id model.Identity) (*model.Cart, error) {
	return r.findCart(ctx, tx, id, true)
}

// GetOrCreate returns the identity's cart, creating it if needed, and locks it.
// Concurrent creators for one identity converge on a single row through the
// partial unique indexes on carts.
func (r *cartRepository) GetOrCreate(ctx context.Context, tx pgx.Tx, id model.Identity) (*model.Cart, error) {
	var (
		query string
		arg   any
	)
	switch {
	case id.UserID != nil:
		query = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO NOTHING`
		arg = *id.UserID
	case id.SessionToken != "":
		query = `INSERT INTO carts (id, session_token) VALUES ($1, $2)
			ON CONFLICT (session_token) WHERE session_token IS NOT NULL DO NOTHING`
		arg = id.SessionToken
	default:
		return nil, model.ErrMissingIdentity
	}

	tag, err := tx.Exec(ctx, query, uuid.New(), arg)
	if err != nil {
		r.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to create cart")
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	if tag.RowsAffected() == 1 {
		r.logger.Debug().Str("identity", id.Key()).Msg("cart created")
	}

	cart, err := r.findCart(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart for %s vanished after creation", id.Key())
	}
	return cart, nil
}

// LockForLine locks and returns the cart holding lineID, or nil when the line is absent.
func (r *cartRepository) LockForLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) (*model.Cart, error) {
	cart, err := scanCart(tx.QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM carts c
		WHERE c.id = (SELECT cart_id FROM cart_lines WHERE id = $1)
		FOR UPDATE
	`, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("line_id", lineID.String()).Msg("cart line not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("line_id", lineID.String()).Msg("failed to lock cart for line")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return cart, nil
}

// GetLine returns a line with its variant, or nil when absent.
func (r *cartRepository) GetLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) (*model.CartLine, error) {
	var l model.CartLine
	err := scanLine(tx.QueryRow(ctx, `SELECT `+lineColumns+` `+lineFrom+` WHERE cl.id = $1`, lineID), &l)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("line_id", lineID.String()).Msg("failed to query cart line")
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}
	return &l, nil
}

func (r *cartRepository) listLines(ctx context.Context, q querier, cartID uuid.UUID) ([]model.CartLine, error) {
	rows, err := q.Query(ctx, `
		SELECT `+lineColumns+` `+lineFrom+`
		WHERE cl.cart_id = $1
		ORDER BY cl.created_at, cl.id
	`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := scanLine(rows, &l); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart line row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart line rows")
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}
	return lines, nil
}

// ListLines returns the cart's lines with live variant pricing.
func (r *cartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	return r.listLines(ctx, r.pool, cartID)
}

// ListLinesTx is ListLines inside a transaction.
func (r *cartRepository) ListLinesTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartLine, error) {
	return r.listLines(ctx, tx, cartID)
}

func (r *cartRepository) touch(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

// SetQuantity upserts the (cart, variant) line to qty.
func (r *cartRepository) SetQuantity(ctx context.Context, tx pgx.Tx, cartID, variantID uuid.UUID, qty int) (*model.CartLine, error) {
	var lineID uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO cart_lines (id, cart_id, variant_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING id
	`, uuid.New(), cartID, variantID, qty).Scan(&lineID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", cartID.String()).
			Str("variant_id", variantID.String()).
			Msg("failed to upsert cart line")
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}

	if err := r.touch(ctx, tx, cartID); err != nil {
		return nil, err
	}
	return r.GetLine(ctx, tx, lineID)
}

// UpdateLineQuantity sets the quantity of an existing line.
func (r *cartRepository) UpdateLineQuantity(ctx context.Context, tx pgx.Tx, lineID uuid.UUID, qty int) error {
	var cartID uuid.UUID
	err := tx.QueryRow(ctx, `UPDATE cart_lines SET quantity = $2 WHERE id = $1 RETURNING cart_id`, lineID, qty).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCartLineNotFound
		}
		r.logger.Error().Err(err).Str("line_id", lineID.String()).Msg("failed to update cart line")
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	return r.touch(ctx, tx, cartID)
}

// DeleteLine removes one line.
func (r *cartRepository) DeleteLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) error {
	var cartID uuid.UUID
	err := tx.QueryRow(ctx, `DELETE FROM cart_lines WHERE id = $1 RETURNING cart_id`, lineID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCartLineNotFound
		}
		r.logger.Error().Err(err).Str("line_id", lineID.String()).Msg("failed to delete cart line")
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return r.touch(ctx, tx, cartID)
}

// ClearLines removes every line of a cart.
func (r *cartRepository) ClearLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	r.logger.Debug().Str("cart_id", cartID.String()).Int64("removed", tag.RowsAffected()).Msg("cart cleared")
	return r.touch(ctx, tx, cartID)
}

// AssignToUser hands an anonymous cart over to a user.
func (r *cartRepository) AssignToUser(ctx context.Context, tx pgx.Tx, cartID, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE carts SET user_id = $2, session_token = NULL, updated_at = NOW()
		WHERE id = $1
	`, cartID, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to assign cart")
		return fmt.Errorf("failed to assign cart: %w", err)
	}
	return nil
}

// DeleteCart removes a cart and its lines.
func (r *cartRepository) DeleteCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
