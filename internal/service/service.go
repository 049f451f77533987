package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// CatalogService defines operations for products and their variants.
type CatalogService interface {
	// List returns products matching filter, each with its variants.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetBySlug returns one product with its variants.
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)

	// CreateProduct adds a product under a unique slug derived from its name.
	CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)

	// CreateVariant adds a color/size configuration under a unique SKU.
	CreateVariant(ctx context.Context, productID uuid.UUID, req *model.CreateVariantRequest) (*model.Variant, error)

	// UpdateVariant restocks or reprices a variant.
	UpdateVariant(ctx context.Context, variantID uuid.UUID, req *model.UpdateVariantRequest) (*model.Variant, error)
}

// CartService defines operations on the current customer's cart.
type CartService interface {
	// View renders the cart with live prices. Identities without a cart get an empty view.
	View(ctx context.Context, id model.Identity) (*model.CartView, error)

	// AddLine adds qty units of a variant, creating the cart and line as needed.
	AddLine(ctx context.Context, id model.Identity, variantID uuid.UUID, qty int) (*model.CartLine, error)

	// UpdateLine sets the quantity of a line owned by id.
	UpdateLine(ctx context.Context, id model.Identity, lineID uuid.UUID, qty int) (*model.CartLine, error)

	// RemoveLine deletes a line owned by id.
	RemoveLine(ctx context.Context, id model.Identity, lineID uuid.UUID) error

	// Clear deletes every line of the identity's cart.
	Clear(ctx context.Context, id model.Identity) error

	// MergeOnLogin hands the anonymous cart of sessionToken over to userID.
	MergeOnLogin(ctx context.Context, sessionToken string, userID uuid.UUID) error
}

// CheckoutService defines the cart to order transition.
type CheckoutService interface {
	// Prefill returns details derived from the stored draft or the user's profile.
	Prefill(ctx context.Context, id model.Identity) (*model.CheckoutDetails, error)

	// Start validates details and the cart, then stores the details as a draft.
	Start(ctx context.Context, id model.Identity, details model.CheckoutDetails) (*model.CheckoutSummary, error)

	// Summary returns the cart and the stored draft.
	Summary(ctx context.Context, id model.Identity) (*model.CheckoutSummary, error)

	// Confirm turns the cart into an order, decrementing stock atomically.
	Confirm(ctx context.Context, id model.Identity) (*model.Order, error)

	// AdoptDraft moves the checkout draft of sessionToken to userID.
	AdoptDraft(ctx context.Context, sessionToken string, userID uuid.UUID) error
}

// OrderService defines operations on placed orders.
type OrderService interface {
	// List returns the identity's orders, newest first.
	List(ctx context.Context, id model.Identity, limit, offset int) ([]model.Order, error)

	// Get returns one order placed by id.
	Get(ctx context.Context, id model.Identity, orderID uuid.UUID) (*model.Order, error)

	// UpdateStatus sets the status of one order.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.StatusChange, error)

	// BatchUpdateStatus sets the status of several orders in one transaction.
	BatchUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, status string) ([]model.StatusChange, error)

	// MarkPaid records payment on several orders and moves them to processing.
	MarkPaid(ctx context.Context, orderIDs []uuid.UUID) ([]model.StatusChange, error)
}

// AccountService defines registration and login.
type AccountService interface {
	// Register creates a user and an empty profile.
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)

	// Login verifies credentials, issues a token and adopts the anonymous cart of sessionToken.
	Login(ctx context.Context, req *model.LoginRequest, sessionToken string) (*model.LoginResponse, error)
}

// inTx runs fn in a transaction from t, committing when fn succeeds and rolling back otherwise.
func inTx(ctx context.Context, t repository.Transactor, logger zerolog.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := t.BeginTx(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
