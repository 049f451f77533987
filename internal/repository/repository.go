package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor opens the transactions that services commit or roll back.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// ProductRepository defines data access for products and their variants.
//
// Methods taking a pgx.Tx run inside the caller's transaction; the Lock*
// methods hold row locks until that transaction ends.
type ProductRepository interface {
	Transactor

	// List returns products matching filter, each with its variants.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetBySlug returns a product with its variants, or nil when absent.
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)

	// GetByID returns a product with its variants, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetVariant returns a variant joined with its product pricing, or nil when absent.
	GetVariant(ctx context.Context, id uuid.UUID) (*model.Variant, error)

	// LockVariant reads a variant under an exclusive row lock, or nil when absent.
	LockVariant(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error)

	// LockVariants locks every listed variant in ascending id order.
	LockVariants(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Variant, error)

	// DecrementStock subtracts qty from a variant, refusing to go below zero.
	// It returns false when the guard rejected the update.
	DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (bool, error)

	// SlugExists reports whether a product already uses slug.
	SlugExists(ctx context.Context, tx pgx.Tx, slug string) (bool, error)

	// SKUExists reports whether a variant already uses sku.
	SKUExists(ctx context.Context, tx pgx.Tx, sku string) (bool, error)

	// CreateProduct inserts a product.
	CreateProduct(ctx context.Context, tx pgx.Tx, product *model.Product) error

	// CreateVariant inserts a variant. A second variant with the same
	// color and size on one product yields model.ErrDuplicateVariant.
	CreateVariant(ctx context.Context, tx pgx.Tx, variant *model.Variant) error

	// UpdateVariant persists stock and price adjustment.
	UpdateVariant(ctx context.Context, tx pgx.Tx, variant *model.Variant) error
}

// CartRepository defines data access for carts and cart lines.
type CartRepository interface {
	Transactor

	// FindByIdentity returns the identity's cart, or nil when it has none.
	FindByIdentity(ctx context.Context, id model.Identity) (*model.Cart, error)

	// GetOrCreate returns the identity's cart, creating it if needed, and locks it.
	GetOrCreate(ctx context.Context, tx pgx.Tx, id model.Identity) (*model.Cart, error)

	// LockByIdentity locks and returns the identity's cart, or nil when it has none.
	LockByIdentity(ctx context.Context, tx pgx.Tx, id model.Identity) (*model.Cart, error)

	// LockForLine locks and returns the cart holding lineID, or nil when the line is absent.
	LockForLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) (*model.Cart, error)

	// GetLine returns a line with its variant, or nil when absent.
	GetLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) (*model.CartLine, error)

	// ListLines returns the cart's lines with live variant pricing.
	ListLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error)

	// ListLinesTx is ListLines inside a transaction.
	ListLinesTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartLine, error)

	// SetQuantity upserts the (cart, variant) line to qty.
	SetQuantity(ctx context.Context, tx pgx.Tx, cartID, variantID uuid.UUID, qty int) (*model.CartLine, error)

	// UpdateLineQuantity sets the quantity of an existing line.
	UpdateLineQuantity(ctx context.Context, tx pgx.Tx, lineID uuid.UUID, qty int) error

	// DeleteLine removes one line.
	DeleteLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) error

	// ClearLines removes every line of a cart.
	ClearLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error

	// AssignToUser hands an anonymous cart over to a user.
	AssignToUser(ctx context.Context, tx pgx.Tx, cartID, userID uuid.UUID) error

	// DeleteCart removes a cart and its lines.
	DeleteCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
}

// OrderRepository defines data access for orders.
type OrderRepository interface {
	Transactor

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderLines inserts the order's lines within the provided transaction.
	CreateOrderLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error

	// GetByID returns an order with its lines, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByIdentity returns the identity's orders, newest first, with lines.
	ListByIdentity(ctx context.Context, id model.Identity, limit, offset int) ([]model.Order, error)

	// UpdateStatus sets status and returns the previous value.
	// It returns model.ErrOrderNotFound when the order does not exist.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (model.OrderStatus, error)

	// MarkPaid records payment and moves the order to processing, returning the previous status.
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) (model.OrderStatus, error)
}

// UserRepository defines data access for accounts.
type UserRepository interface {
	Transactor

	// Create inserts a user. Taken usernames or emails yield model.ErrAccountExists.
	Create(ctx context.Context, tx pgx.Tx, user *model.User) error

	// CreateProfile inserts the user's profile.
	CreateProfile(ctx context.Context, tx pgx.Tx, profile *model.Profile) error

	// FindByLogin looks a user up by username or email, or nil when absent.
	FindByLogin(ctx context.Context, login string) (*model.User, error)

	// GetByID returns a user, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetProfile returns the user's profile, or nil when absent.
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
}
