package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultProductLimit = 20
	maxProductLimit     = 100

	// Fallbacks for names that fold to nothing in ASCII.
	fallbackSlug = "product"
	fallbackSKU  = "SKU"
)

// catalogService implements CatalogService.
type catalogService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(productRepo repository.ProductRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "catalog").Logger(),
	}
}

// List returns products matching filter, each with its variants.
func (s *catalogService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultProductLimit
	}
	if filter.Limit > maxProductLimit {
		filter.Limit = maxProductLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}

	s.logger.Debug().
		Int("count", len(products)).
		Str("category", filter.Category).
		Msg("retrieved products")

	return products, nil
}

// GetBySlug returns one product with its variants.
func (s *catalogService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	if slug == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetBySlug(ctx, slug)
	if err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("failed to get product by slug")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		s.logger.Debug().Str("slug", slug).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// CreateProduct adds a product under a unique slug derived from its name.
func (s *catalogService) CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product := &model.Product{
		ID:              uuid.New(),
		Name:            req.Name,
		Category:        req.Category,
		Brand:           req.Brand,
		Description:     req.Description,
		SellPrice:       req.SellPrice.Round(2),
		PurchasePrice:   req.PurchasePrice.Round(2),
		DiscountPercent: req.DiscountPercent,
		Featured:        req.Featured,
		NewRelease:      req.NewRelease,
		CreatedAt:       time.Now().UTC(),
	}

	base := catalog.Slugify(req.Name)
	if base == "" {
		base = fallbackSlug
	}

	err := retryTaken(repository.ErrSlugTaken, func() error {
		return inTx(ctx, s.productRepo, s.logger, func(tx pgx.Tx) error {
			slug, err := catalog.Unique(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
				return s.productRepo.SlugExists(ctx, tx, candidate)
			})
			if err != nil {
				return fmt.Errorf("failed to pick slug: %w", err)
			}
			product.Slug = slug

			return s.productRepo.CreateProduct(ctx, tx, product)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", product.ID.String()).
		Str("slug", product.Slug).
		Msg("product created")

	return product, nil
}

func validateProduct(req *model.CreateProductRequest) error {
	var fields []model.FieldError
	if req.SellPrice.IsNegative() {
		fields = append(fields, model.FieldError{Field: "sellPrice", Message: "must not be negative"})
	}
	if req.PurchasePrice.IsNegative() {
		fields = append(fields, model.FieldError{Field: "purchasePrice", Message: "must not be negative"})
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		fields = append(fields, model.FieldError{Field: "discountPercent", Message: "must be between 0 and 100"})
	}
	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}

// retryTaken runs fn again once when it lost a race for a generated identifier.
// The second attempt runs in a fresh transaction and sees the winner's row.
func retryTaken(taken error, fn func() error) error {
	err := fn()
	if errors.Is(err, taken) {
		err = fn()
	}
	if errors.Is(err, taken) {
		return fmt.Errorf("failed to reserve identifier: %w", err)
	}
	return err
}

// CreateVariant adds a color/size configuration under a unique SKU.
func (s *catalogService) CreateVariant(ctx context.Context, productID uuid.UUID, req *model.CreateVariantRequest) (*model.Variant, error) {
	if req.Stock < 0 {
		return nil, &model.ValidationError{Fields: []model.FieldError{
			{Field: "stock", Message: "must not be negative"},
		}}
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to get product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	if err := validateAdjustment(product.SellPrice, req.PriceAdjustment); err != nil {
		return nil, err
	}

	variant := &model.Variant{
		ID:              uuid.New(),
		ProductID:       product.ID,
		Color:           blankToNil(req.Color),
		Size:            blankToNil(req.Size),
		Stock:           req.Stock,
		PriceAdjustment: req.PriceAdjustment.Round(2),
		CreatedAt:       time.Now().UTC(),
		ProductName:     product.Name,
		ProductSlug:     product.Slug,
		BasePrice:       product.SellPrice,
		DiscountPercent: product.DiscountPercent,
	}

	base := catalog.SKU(product.Name, valueOf(variant.Color), valueOf(variant.Size))
	if base == "" {
		base = fallbackSKU
	}

	err = retryTaken(repository.ErrSKUTaken, func() error {
		return inTx(ctx, s.productRepo, s.logger, func(tx pgx.Tx) error {
			sku, err := catalog.Unique(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
				return s.productRepo.SKUExists(ctx, tx, candidate)
			})
			if err != nil {
				return fmt.Errorf("failed to pick sku: %w", err)
			}
			variant.SKU = sku

			return s.productRepo.CreateVariant(ctx, tx, variant)
		})
	})
	if err != nil {
		if model.KindOf(err) == model.KindConflict {
			s.logger.Warn().
				Str("product_id", productID.String()).
				Str("color", valueOf(variant.Color)).
				Str("size", valueOf(variant.Size)).
				Msg("duplicate variant rejected")
		}
		return nil, err
	}

	s.logger.Info().
		Str("variant_id", variant.ID.String()).
		Str("sku", variant.SKU).
		Msg("variant created")

	return variant, nil
}

// UpdateVariant restocks or reprices a variant.
func (s *catalogService) UpdateVariant(ctx context.Context, variantID uuid.UUID, req *model.UpdateVariantRequest) (*model.Variant, error) {
	if req.Stock != nil && *req.Stock < 0 {
		return nil, &model.ValidationError{Fields: []model.FieldError{
			{Field: "stock", Message: "must not be negative"},
		}}
	}

	var variant *model.Variant
	err := inTx(ctx, s.productRepo, s.logger, func(tx pgx.Tx) error {
		v, err := s.productRepo.LockVariant(ctx, tx, variantID)
		if err != nil {
			return err
		}
		if v == nil {
			return model.ErrVariantNotFound
		}

		if req.Stock != nil {
			v.Stock = *req.Stock
		}
		if req.PriceAdjustment != nil {
			if err := validateAdjustment(v.BasePrice, *req.PriceAdjustment); err != nil {
				return err
			}
			v.PriceAdjustment = req.PriceAdjustment.Round(2)
		}
		if err := s.productRepo.UpdateVariant(ctx, tx, v); err != nil {
			return err
		}
		variant = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("variant_id", variant.ID.String()).
		Int("stock", variant.Stock).
		Str("price_adjustment", variant.PriceAdjustment.StringFixed(2)).
		Msg("variant updated")

	return variant, nil
}

// validateAdjustment rejects an adjustment that would price the variant below zero.
func validateAdjustment(base, adjustment decimal.Decimal) error {
	if base.Add(adjustment.Round(2)).IsNegative() {
		return &model.ValidationError{Fields: []model.FieldError{
			{Field: "priceAdjustment", Message: "must not make the price negative"},
		}}
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
