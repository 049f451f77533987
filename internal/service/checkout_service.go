package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/session"
	"storefront/internal/validation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const defaultDraftTTL = time.Hour

// CheckoutDeps groups the collaborators of the checkout service.
type CheckoutDeps struct {
	Carts    repository.CartRepository
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Users    repository.UserRepository
	Drafts   session.DraftStore
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	DraftTTL time.Duration
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	drafts      session.DraftStore
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	draftTTL    time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(deps CheckoutDeps, logger zerolog.Logger) CheckoutService {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.DraftTTL <= 0 {
		deps.DraftTTL = defaultDraftTTL
	}
	return &checkoutService{
		cartRepo:    deps.Carts,
		productRepo: deps.Products,
		orderRepo:   deps.Orders,
		userRepo:    deps.Users,
		drafts:      deps.Drafts,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		draftTTL:    deps.DraftTTL,
		now:         time.Now,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// Prefill returns details derived from the stored draft or the user's profile.
func (s *checkoutService) Prefill(ctx context.Context, id model.Identity) (*model.CheckoutDetails, error) {
	if id.IsZero() {
		return &model.CheckoutDetails{}, nil
	}

	draft, err := s.drafts.Load(ctx, id.Key())
	if err != nil {
		s.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to load checkout draft")
		return nil, fmt.Errorf("failed to load checkout details: %w", err)
	}
	if draft != nil {
		return draft, nil
	}

	details := &model.CheckoutDetails{}
	if !id.IsAuthenticated() {
		return details, nil
	}

	user, err := s.userRepo.GetByID(ctx, *id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return details, nil
	}
	details.Email = user.Email
	if full := strings.TrimSpace(user.FirstName + " " + user.LastName); full != "" {
		details.FullName = full
	}

	profile, err := s.userRepo.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil {
		details.Phone = valueOf(profile.Phone)
		details.Address = valueOf(profile.DefaultAddress)
		details.City = valueOf(profile.DefaultCity)
		details.State = valueOf(profile.DefaultState)
		details.PostalCode = valueOf(profile.DefaultPostalCode)
	}
	return details, nil
}

// Start validates details and the cart, then stores the details as a draft.
func (s *checkoutService) Start(ctx context.Context, id model.Identity, details model.CheckoutDetails) (*model.CheckoutSummary, error) {
	if id.IsZero() {
		return nil, model.ErrMissingIdentity
	}

	details = details.Normalise()
	if err := validation.Struct(details); err != nil {
		s.logger.Debug().Err(err).Str("identity", id.Key()).Msg("checkout details rejected")
		return nil, err
	}

	view, err := s.cartView(ctx, id)
	if err != nil {
		return nil, err
	}
	if violations := viewViolations(view); len(violations) > 0 {
		s.metrics.StockConflict("checkout")
		s.logger.Warn().
			Str("identity", id.Key()).
			Int("violations", len(violations)).
			Msg("checkout start rejected, insufficient stock")
		return nil, &model.StockConflictError{Violations: violations}
	}

	if err := s.drafts.Save(ctx, id.Key(), details, s.draftTTL); err != nil {
		s.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to save checkout draft")
		return nil, fmt.Errorf("failed to save checkout details: %w", err)
	}

	s.logger.Debug().Str("identity", id.Key()).Msg("checkout draft saved")
	return &model.CheckoutSummary{Cart: view, Details: details}, nil
}

// Summary returns the cart and the stored draft.
func (s *checkoutService) Summary(ctx context.Context, id model.Identity) (*model.CheckoutSummary, error) {
	if id.IsZero() {
		return nil, model.ErrEmptyCart
	}

	view, err := s.cartView(ctx, id)
	if err != nil {
		return nil, err
	}

	draft, err := s.drafts.Load(ctx, id.Key())
	if err != nil {
		s.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to load checkout draft")
		return nil, fmt.Errorf("failed to load checkout details: %w", err)
	}
	if draft == nil {
		return nil, model.ErrCheckoutMissing
	}

	return &model.CheckoutSummary{Cart: view, Details: *draft}, nil
}

// cartView loads the identity's cart and rejects it when empty.
func (s *checkoutService) cartView(ctx context.Context, id model.Identity) (*model.CartView, error) {
	cart, err := s.cartRepo.FindByIdentity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrEmptyCart
	}

	lines, err := s.cartRepo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}
	return model.NewCartView(cart, lines), nil
}

func viewViolations(view *model.CartView) []model.StockViolation {
	var out []model.StockViolation
	for _, l := range view.Lines {
		if l.Quantity > l.InStock {
			name := l.ProductName
			if label := variantLabel(l.Color, l.Size); label != "" {
				name += " (" + label + ")"
			}
			out = append(out, model.StockViolation{
				VariantID: l.VariantID,
				SKU:       l.SKU,
				Name:      name,
				Requested: l.Quantity,
				Available: l.InStock,
			})
		}
	}
	return out
}

func variantLabel(color, size *string) string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{color, size} {
		if v := valueOf(p); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "/")
}

// Confirm turns the cart into an order.
//
// The cart row and then every variant row are locked before stock is
// re-checked. All violations are reported together and nothing changes when
// there are any. Order creation, stock decrement and cart clearing commit
// together; the draft and notifications are handled after commit.
func (s *checkoutService) Confirm(ctx context.Context, id model.Identity) (*model.Order, error) {
	if id.IsZero() {
		return nil, model.ErrEmptyCart
	}

	details, err := s.drafts.Load(ctx, id.Key())
	if err != nil {
		s.logger.Error().Err(err).Str("identity", id.Key()).Msg("failed to load checkout draft")
		return nil, fmt.Errorf("failed to load checkout details: %w", err)
	}

	var order *model.Order
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.cartRepo.LockByIdentity(ctx, tx, id)
		if err != nil {
			return err
		}
		if cart == nil {
			return model.ErrEmptyCart
		}

		lines, err := s.cartRepo.ListLinesTx(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return model.ErrEmptyCart
		}

		variants, err := s.lockLineVariants(ctx, tx, lines)
		if err != nil {
			return err
		}

		var violations []model.StockViolation
		for _, l := range lines {
			v := variants[l.VariantID]
			if l.Quantity > v.Stock {
				violations = append(violations, violation(&v, l.Quantity, v.Stock))
			}
		}
		if len(violations) > 0 {
			return &model.StockConflictError{Violations: violations}
		}

		if details == nil {
			return model.ErrCheckoutMissing
		}

		order = s.newOrder(id, *details, lines, variants)
		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		if err := s.orderRepo.CreateOrderLines(ctx, tx, order.Lines); err != nil {
			return err
		}

		for _, l := range order.Lines {
			ok, err := s.productRepo.DecrementStock(ctx, tx, l.VariantID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("stock of variant %s changed under lock", l.VariantID)
			}
		}

		return s.cartRepo.ClearLines(ctx, tx, cart.ID)
	})
	if err != nil {
		switch model.KindOf(err) {
		case model.KindInternal:
			s.logger.Error().Err(err).Str("identity", id.Key()).Msg("checkout failed")
			return nil, fmt.Errorf("failed to place order: %w", err)
		case model.KindConflict:
			s.metrics.StockConflict("checkout")
			s.logger.Warn().Err(err).Str("identity", id.Key()).Msg("checkout rejected, insufficient stock")
		default:
			s.logger.Debug().Err(err).Str("identity", id.Key()).Msg("checkout rejected")
		}
		return nil, err
	}

	if err := s.drafts.Discard(ctx, id.Key()); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to discard checkout draft")
	}
	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("order confirmation not delivered")
	}
	s.metrics.OrderPlaced(order.Total)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("identity", id.Key()).
		Int("line_count", len(order.Lines)).
		Str("total", order.Total.StringFixed(2)).
		Msg("order placed")

	return order, nil
}

// lockLineVariants locks the variants of lines in ascending id order.
func (s *checkoutService) lockLineVariants(ctx context.Context, tx pgx.Tx, lines []model.CartLine) (map[uuid.UUID]model.Variant, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.VariantID
	}

	locked, err := s.productRepo.LockVariants(ctx, tx, sortedIDs(ids))
	if err != nil {
		return nil, err
	}

	variants := make(map[uuid.UUID]model.Variant, len(locked))
	for _, v := range locked {
		variants[v.ID] = v
	}
	for _, l := range lines {
		if _, ok := variants[l.VariantID]; !ok {
			return nil, fmt.Errorf("variant %s of cart line %s vanished", l.VariantID, l.ID)
		}
	}
	return variants, nil
}

func (s *checkoutService) newOrder(id model.Identity, details model.CheckoutDetails, lines []model.CartLine, variants map[uuid.UUID]model.Variant) *model.Order {
	now := s.now().UTC()
	order := &model.Order{
		ID:            uuid.New(),
		UserID:        id.UserID,
		Status:        model.OrderStatusPending,
		FullName:      details.FullName,
		Email:         details.Email,
		Address:       details.Address,
		City:          details.City,
		State:         details.State,
		PostalCode:    details.PostalCode,
		PaymentMethod: model.PaymentMethodSimulated,
		CreatedAt:     now,
		UpdatedAt:     now,
		Lines:         make([]model.OrderLine, 0, len(lines)),
	}
	if !id.IsAuthenticated() {
		token := id.SessionToken
		order.SessionToken = &token
	}
	if details.Phone != "" {
		phone := details.Phone
		order.Phone = &phone
	}

	for _, l := range lines {
		v := variants[l.VariantID]
		order.Lines = append(order.Lines, model.OrderLine{
			ID:          uuid.New(),
			OrderID:     order.ID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   v.FinalPrice(),
			SKU:         v.SKU,
			ProductName: v.ProductName,
		})
	}
	order.Total = order.CalculateTotal()
	return order
}

// AdoptDraft moves the checkout draft of sessionToken to userID so a visitor
// who logs in mid-checkout can still confirm. The session draft replaces any
// older draft the user had, matching the cart the visitor is checking out.
func (s *checkoutService) AdoptDraft(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	if sessionToken == "" {
		return nil
	}

	from := model.SessionIdentity(sessionToken).Key()
	draft, err := s.drafts.Load(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to load checkout draft: %w", err)
	}
	if draft == nil {
		return nil
	}

	to := model.UserIdentity(userID).Key()
	if err := s.drafts.Save(ctx, to, *draft, s.draftTTL); err != nil {
		return fmt.Errorf("failed to save checkout draft: %w", err)
	}
	if err := s.drafts.Discard(ctx, from); err != nil {
		s.logger.Warn().Err(err).Str("identity", from).Msg("failed to discard adopted checkout draft")
	}

	s.logger.Debug().Str("user_id", userID.String()).Msg("checkout draft adopted")
	return nil
}
