package repository

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/database/dbtest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repos struct {
	pool     *pgxpool.Pool
	products ProductRepository
	carts    CartRepository
	orders   OrderRepository
	users    UserRepository
}

func setupRepos(t *testing.T) repos {
	pool := dbtest.New(t)
	logger := zerolog.Nop()
	return repos{
		pool:     pool,
		products: NewProductRepository(pool, logger),
		carts:    NewCartRepository(pool, logger),
		orders:   NewOrderRepository(pool, logger),
		users:    NewUserRepository(pool, logger),
	}
}

func TestStore_BeginTx(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	tx, err := r.orders.BeginTx(ctx)
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.NoError(t, tx.Rollback(ctx))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "any constraint", err: dup, want: true},
		{name: "named constraint", err: dup, constraint: "users_email_key", want: true},
		{name: "other constraint", err: dup, constraint: "users_username_key", want: false},
		{name: "wrapped", err: errors.Join(errors.New("insert"), dup), want: true},
		{name: "other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err, tt.constraint))
		})
	}
}
