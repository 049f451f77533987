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
	productColumns = `p.id, p.name, p.slug, p.category, p.brand, p.description, p.sell_price,
		p.purchase_price, p.discount_percent, p.featured, p.new_release, p.created_at`

	variantColumns = `v.id, v.product_id, v.color, v.size, v.sku, v.stock, v.price_adjustment,
		v.created_at, p.name, p.slug, p.sell_price, p.discount_percent`

	variantFrom = `FROM variants v JOIN products p ON p.id = v.product_id`

	variantUniqueIndex = "idx_variants_product_color_size"
	slugUniqueIndex    = "products_slug_key"
	skuUniqueIndex     = "variants_sku_key"
)

// ErrSlugTaken and ErrSKUTaken report that a concurrent insert claimed the generated identifier.
var (
	ErrSlugTaken = errors.New("product slug already taken")
	ErrSKUTaken  = errors.New("variant sku already taken")
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	store
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{store: newStore(pool, logger, "product")}
}

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Category, &p.Brand, &p.Description, &p.SellPrice,
		&p.PurchasePrice, &p.DiscountPercent, &p.Featured, &p.NewRelease, &p.CreatedAt,
	)
}

func scanVariant(row pgx.Row, v *model.Variant) error {
	return row.Scan(
		&v.ID, &v.ProductID, &v.Color, &v.Size, &v.SKU, &v.Stock, &v.PriceAdjustment,
		&v.CreatedAt, &v.ProductName, &v.ProductSlug, &v.BasePrice, &v.DiscountPercent,
	)
}

func collectVariants(rows pgx.Rows) ([]model.Variant, error) {
	defer rows.Close()

	var variants []model.Variant
	for rows.Next() {
		var v model.Variant
		if err := scanVariant(rows, &v); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return variants, nil
}

// List returns products matching filter, each with its variants.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE ($1 = '' OR p.category = $1)
		  AND (NOT $2 OR p.featured)
		  AND (NOT $3 OR p.new_release)
		ORDER BY p.created_at DESC, p.id
		LIMIT $4 OFFSET $5
	`

	rows, err := r.pool.Query(ctx, query, filter.Category, filter.Featured, filter.NewRelease, limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", filter.Offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachVariants loads the variants of every product in one query.
func (r *productRepository) attachVariants(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(products))
	index := make(map[uuid.UUID]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+variantColumns+` `+variantFrom+`
		WHERE v.product_id = ANY($1)
		ORDER BY v.created_at, v.id
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query variants")
		return fmt.Errorf("failed to query variants: %w", err)
	}

	variants, err := collectVariants(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read variants")
		return err
	}

	for _, v := range variants {
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}
	return nil
}

func (r *productRepository) getOne(ctx context.Context, where string, arg any) (*model.Product, error) {
	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE `+where, arg), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	products := []model.Product{p}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetBySlug returns a product with its variants, or nil when absent.
func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.getOne(ctx, "p.slug = $1", slug)
}

// GetByID returns a product with its variants, or nil when absent.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.getOne(ctx, "p.id = $1", id)
}

func (r *productRepository) variant(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.Variant, error) {
	query := `SELECT ` + variantColumns + ` ` + variantFrom + ` WHERE v.id = $1`
	if lock {
		query += ` FOR UPDATE OF v`
	}

	var v model.Variant
	if err := scanVariant(q.QueryRow(ctx, query, id), &v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("variant_id", id.String()).Msg("variant not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("variant_id", id.String()).Msg("failed to query variant")
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}
	return &v, nil
}

// GetVariant returns a variant joined with its product pricing, or nil when absent.
func (r *productRepository) GetVariant(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	return r.variant(ctx, r.pool, id, false)
}

// LockVariant reads a variant under an exclusive row lock, or nil when absent.
func (r *productRepository) LockVariant(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error) {
	return r.variant(ctx, tx, id, true)
}

// LockVariants locks every listed variant in ascending id order.
func (r *productRepository) LockVariants(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT `+variantColumns+` `+variantFrom+`
		WHERE v.id = ANY($1)
		ORDER BY v.id
		FOR UPDATE OF v
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to lock variants")
		return nil, fmt.Errorf("failed to lock variants: %w", err)
	}

	variants, err := collectVariants(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read locked variants")
		return nil, err
	}
	return variants, nil
}

// DecrementStock subtracts qty from a variant, refusing to go below zero.
func (r *productRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE variants SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, id, qty)
	if err != nil {
		r.logger.Error().Err(err).Str("variant_id", id.String()).Int("quantity", qty).Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *productRepository) exists(ctx context.Context, tx pgx.Tx, query, value string) (bool, error) {
	var found bool
	if err := tx.QueryRow(ctx, query, value).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return found, nil
}

// SlugExists reports whether a product already uses slug.
func (r *productRepository) SlugExists(ctx context.Context, tx pgx.Tx, slug string) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`, slug)
}

// SKUExists reports whether a variant already uses sku.
func (r *productRepository) SKUExists(ctx context.Context, tx pgx.Tx, sku string) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM variants WHERE sku = $1)`, sku)
}

// CreateProduct inserts a product.
func (r *productRepository) CreateProduct(ctx context.Context, tx pgx.Tx, p *model.Product) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO products (id, name, slug, category, brand, description, sell_price,
			purchase_price, discount_percent, featured, new_release, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Name, p.Slug, p.Category, p.Brand, p.Description, p.SellPrice,
		p.PurchasePrice, p.DiscountPercent, p.Featured, p.NewRelease, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, slugUniqueIndex) {
			return ErrSlugTaken
		}
		r.logger.Error().Err(err).Str("slug", p.Slug).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Str("product_id", p.ID.String()).Str("slug", p.Slug).Msg("product created")
	return nil
}

// CreateVariant inserts a variant.
func (r *productRepository) CreateVariant(ctx context.Context, tx pgx.Tx, v *model.Variant) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO variants (id, product_id, color, size, sku, stock, price_adjustment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.ProductID, v.Color, v.Size, v.SKU, v.Stock, v.PriceAdjustment, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, variantUniqueIndex) {
			return model.ErrDuplicateVariant
		}
		if isUniqueViolation(err, skuUniqueIndex) {
			return ErrSKUTaken
		}
		r.logger.Error().Err(err).Str("sku", v.SKU).Msg("failed to create variant")
		return fmt.Errorf("failed to create variant: %w", err)
	}

	r.logger.Debug().Str("variant_id", v.ID.String()).Str("sku", v.SKU).Msg("variant created")
	return nil
}

// UpdateVariant persists stock and price adjustment.
func (r *productRepository) UpdateVariant(ctx context.Context, tx pgx.Tx, v *model.Variant) error {
	tag, err := tx.Exec(ctx, `
		UPDATE variants SET stock = $2, price_adjustment = $3 WHERE id = $1
	`, v.ID, v.Stock, v.PriceAdjustment)
	if err != nil {
		r.logger.Error().Err(err).Str("variant_id", v.ID.String()).Msg("failed to update variant")
		return fmt.Errorf("failed to update variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVariantNotFound
	}
	return nil
}
