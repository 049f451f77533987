package service

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Every cart mutation locks the cart row first and variant rows after it,
// in ascending id order, so concurrent requests queue instead of deadlocking.

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// View renders the cart with live prices. Identities without a cart get an empty view.
func (s *cartService) View(ctx context.Context, id model.Identity) (*model.CartView, error) {
	if id.IsZero() {
		return model.NewCartView(nil, nil), nil
	}

	cart, err := s.cartRepo.FindByIdentity(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to find cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return model.NewCartView(nil, nil), nil
	}

	lines, err := s.cartRepo.ListLines(ctx, cart.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to list cart lines")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return model.NewCartView(cart, lines), nil
}

// AddLine adds qty units of a variant, creating the cart and line as needed.
func (s *cartService) AddLine(ctx context.Context, id model.Identity, variantID uuid.UUID, qty int) (*model.CartLine, error) {
	if qty < 1 {
		return nil, model.ErrInvalidQuantity
	}
	if id.IsZero() {
		return nil, model.ErrMissingIdentity
	}

	var line *model.CartLine
	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.cartRepo.GetOrCreate(ctx, tx, id)
		if err != nil {
			return err
		}

		variant, err := s.productRepo.LockVariant(ctx, tx, variantID)
		if err != nil {
			return err
		}
		if variant == nil {
			return model.ErrVariantNotFound
		}

		existing, err := s.existingQuantity(ctx, tx, cart.ID, variantID)
		if err != nil {
			return err
		}

		requested := existing + qty
		if requested > variant.Stock {
			return &model.StockConflictError{Violations: []model.StockViolation{
				violation(variant, qty, max(variant.Stock-existing, 0)),
			}}
		}

		line, err = s.cartRepo.SetQuantity(ctx, tx, cart.ID, variantID, requested)
		return err
	})
	if err != nil {
		return nil, s.rejected("add", err)
	}

	s.metrics.CartChanged("add")
	s.logger.Debug().
		Str("identity", id.Key()).
		Str("variant_id", variantID.String()).
		Int("quantity", line.Quantity).
		Msg("cart line added")

	return line, nil
}

// existingQuantity reads the quantity already held for variantID, 0 when there is no line.
func (s *cartService) existingQuantity(ctx context.Context, tx pgx.Tx, cartID, variantID uuid.UUID) (int, error) {
	lines, err := s.cartRepo.ListLinesTx(ctx, tx, cartID)
	if err != nil {
		return 0, err
	}
	for _, l := range lines {
		if l.VariantID == variantID {
			return l.Quantity, nil
		}
	}
	return 0, nil
}

// UpdateLine sets the quantity of a line owned by id.
func (s *cartService) UpdateLine(ctx context.Context, id model.Identity, lineID uuid.UUID, qty int) (*model.CartLine, error) {
	if qty < 1 {
		return nil, model.ErrInvalidQuantity
	}

	var line *model.CartLine
	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		current, err := s.ownedLine(ctx, tx, id, lineID)
		if err != nil {
			return err
		}

		variant, err := s.productRepo.LockVariant(ctx, tx, current.VariantID)
		if err != nil {
			return err
		}
		if variant == nil {
			return model.ErrVariantNotFound
		}
		if qty > variant.Stock {
			return &model.StockConflictError{Violations: []model.StockViolation{
				violation(variant, qty, variant.Stock),
			}}
		}

		if err := s.cartRepo.UpdateLineQuantity(ctx, tx, lineID, qty); err != nil {
			return err
		}
		current.Quantity = qty
		current.Variant = *variant
		line = current
		return nil
	})
	if err != nil {
		return nil, s.rejected("update", err)
	}

	s.metrics.CartChanged("update")
	s.logger.Debug().
		Str("line_id", lineID.String()).
		Int("quantity", qty).
		Msg("cart line updated")

	return line, nil
}

// RemoveLine deletes a line owned by id.
func (s *cartService) RemoveLine(ctx context.Context, id model.Identity, lineID uuid.UUID) error {
	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		if _, err := s.ownedLine(ctx, tx, id, lineID); err != nil {
			return err
		}
		return s.cartRepo.DeleteLine(ctx, tx, lineID)
	})
	if err != nil {
		return s.rejected("remove", err)
	}

	s.metrics.CartChanged("remove")
	s.logger.Debug().Str("line_id", lineID.String()).Msg("cart line removed")
	return nil
}

// ownedLine locks the cart holding lineID and returns the line when id owns it.
func (s *cartService) ownedLine(ctx context.Context, tx pgx.Tx, id model.Identity, lineID uuid.UUID) (*model.CartLine, error) {
	cart, err := s.cartRepo.LockForLine(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, model.ErrCartLineNotFound
	}
	if !id.Owns(cart) {
		s.logger.Warn().
			Str("identity", id.Key()).
			Str("line_id", lineID.String()).
			Msg("cart line ownership check failed")
		return nil, model.ErrNotLineOwner
	}

	line, err := s.cartRepo.GetLine(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, model.ErrCartLineNotFound
	}
	return line, nil
}

// Clear deletes every line of the identity's cart.
func (s *cartService) Clear(ctx context.Context, id model.Identity) error {
	if id.IsZero() {
		return nil
	}

	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.cartRepo.LockByIdentity(ctx, tx, id)
		if err != nil || cart == nil {
			return err
		}
		return s.cartRepo.ClearLines(ctx, tx, cart.ID)
	})
	if err != nil {
		return s.rejected("clear", err)
	}

	s.metrics.CartChanged("clear")
	return nil
}

// MergeOnLogin hands the anonymous cart of sessionToken over to userID.
//
// A user without a cart simply takes the anonymous one over. A user who
// already has a cart receives the anonymous lines added onto theirs, each
// capped at current stock, and the anonymous cart is deleted, so a user
// never ends up with two carts.
func (s *cartService) MergeOnLogin(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	if sessionToken == "" {
		return nil
	}

	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		anon, err := s.cartRepo.LockByIdentity(ctx, tx, model.SessionIdentity(sessionToken))
		if err != nil || anon == nil {
			return err
		}

		owned, err := s.cartRepo.LockByIdentity(ctx, tx, model.UserIdentity(userID))
		if err != nil {
			return err
		}
		if owned == nil {
			s.logger.Debug().
				Str("cart_id", anon.ID.String()).
				Str("user_id", userID.String()).
				Msg("anonymous cart assigned to user")
			return s.cartRepo.AssignToUser(ctx, tx, anon.ID, userID)
		}

		return s.mergeLines(ctx, tx, anon, owned)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to merge cart on login")
		return fmt.Errorf("failed to merge cart: %w", err)
	}
	return nil
}

func (s *cartService) mergeLines(ctx context.Context, tx pgx.Tx, anon, owned *model.Cart) error {
	anonLines, err := s.cartRepo.ListLinesTx(ctx, tx, anon.ID)
	if err != nil {
		return err
	}
	ownedLines, err := s.cartRepo.ListLinesTx(ctx, tx, owned.ID)
	if err != nil {
		return err
	}

	held := make(map[uuid.UUID]int, len(ownedLines))
	for _, l := range ownedLines {
		held[l.VariantID] = l.Quantity
	}

	ids := make([]uuid.UUID, 0, len(anonLines))
	for _, l := range anonLines {
		ids = append(ids, l.VariantID)
	}
	variants, err := s.productRepo.LockVariants(ctx, tx, sortedIDs(ids))
	if err != nil {
		return err
	}
	stock := make(map[uuid.UUID]int, len(variants))
	for _, v := range variants {
		stock[v.ID] = v.Stock
	}

	merged := 0
	for _, l := range anonLines {
		current := held[l.VariantID]
		qty := min(current+l.Quantity, max(stock[l.VariantID], current))
		if qty == current || qty < 1 {
			continue
		}
		if _, err := s.cartRepo.SetQuantity(ctx, tx, owned.ID, l.VariantID, qty); err != nil {
			return err
		}
		merged++
	}

	s.logger.Debug().
		Str("from_cart", anon.ID.String()).
		Str("to_cart", owned.ID.String()).
		Int("merged_lines", merged).
		Msg("anonymous cart merged")

	return s.cartRepo.DeleteCart(ctx, tx, anon.ID)
}

// rejected records business rejections and wraps infrastructure failures.
func (s *cartService) rejected(op string, err error) error {
	switch model.KindOf(err) {
	case model.KindInternal:
		s.logger.Error().Err(err).Str("operation", op).Msg("cart operation failed")
		return fmt.Errorf("failed to %s cart line: %w", op, err)
	case model.KindConflict:
		s.metrics.StockConflict(op)
		s.logger.Warn().Err(err).Str("operation", op).Msg("insufficient stock")
	default:
		s.logger.Debug().Err(err).Str("operation", op).Msg("cart operation rejected")
	}
	return err
}

func violation(v *model.Variant, requested, available int) model.StockViolation {
	return model.StockViolation{
		VariantID: v.ID,
		SKU:       v.SKU,
		Name:      v.Label(),
		Requested: requested,
		Available: available,
	}
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
