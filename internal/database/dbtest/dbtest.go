// Package dbtest starts a disposable PostgreSQL for tests and seeds catalogue rows.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// New starts a postgres container, applies the embedded schema and returns a pool.
// The container is terminated when the test finishes. Skipped under -short.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolConfig.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	return pool
}

// Truncate empties every application table.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE order_lines, orders, cart_lines, carts, variants, products, profiles, users CASCADE
	`)
	require.NoError(t, err)
}

// Product describes a seeded product with a single variant.
type Product struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Slug      string
	SKU       string
}

// SeedProduct inserts a product priced at price with one variant holding stock units.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name string, price string, discount int, stock int) Product {
	t.Helper()

	ctx := context.Background()
	p := Product{
		ProductID: uuid.New(),
		VariantID: uuid.New(),
		Slug:      fmt.Sprintf("seed-%s", uuid.NewString()[:8]),
	}
	p.SKU = fmt.Sprintf("SKU-%s", p.VariantID.String()[:8])

	_, err := pool.Exec(ctx, `
		INSERT INTO products (id, name, slug, category, sell_price, purchase_price, discount_percent)
		VALUES ($1, $2, $3, 'test', $4, 0, $5)
	`, p.ProductID, name, p.Slug, decimal.RequireFromString(price), discount)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO variants (id, product_id, sku, stock)
		VALUES ($1, $2, $3, $4)
	`, p.VariantID, p.ProductID, p.SKU, stock)
	require.NoError(t, err)

	return p
}

// Stock reads the current stock of a variant.
func Stock(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID) int {
	t.Helper()

	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock FROM variants WHERE id = $1`, variantID).Scan(&stock)
	require.NoError(t, err)
	return stock
}

// Count returns the number of rows in table.
func Count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(), fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	require.NoError(t, err)
	return n
}
