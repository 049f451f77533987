package catalog

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProductCreator is the catalogue write API the importer drives.
type ProductCreator interface {
	CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	CreateVariant(ctx context.Context, productID uuid.UUID, req *model.CreateVariantRequest) (*model.Variant, error)
}

// ImportResult counts what an import created or skipped.
type ImportResult struct {
	Products int
	Variants int
	Skipped  int
	Errors   []error
}

// Importer loads a feed and creates its products and variants.
type Importer struct {
	loader  Loader
	creator ProductCreator
	logger  zerolog.Logger
}

// NewImporter creates an importer.
func NewImporter(loader Loader, creator ProductCreator, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:  loader,
		creator: creator,
		logger:  logger.With().Str("component", "importer").Logger(),
	}
}

// Import creates every feed item. A failing item is recorded and skipped;
// duplicate variants are skipped silently. Load failures abort the import.
func (i *Importer) Import(ctx context.Context, path string) (*ImportResult, error) {
	items, err := i.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for n, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		product, err := i.creator.CreateProduct(ctx, &item.CreateProductRequest)
		if err != nil {
			i.logger.Warn().Err(err).Int("item", n+1).Str("name", item.Name).Msg("skipping product")
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Errorf("item %d (%s): %w", n+1, item.Name, err))
			continue
		}
		result.Products++

		for _, v := range item.Variants {
			if _, err := i.creator.CreateVariant(ctx, product.ID, &v); err != nil {
				if errors.Is(err, model.ErrDuplicateVariant) {
					result.Skipped++
					continue
				}
				i.logger.Warn().Err(err).Str("product", product.Slug).Msg("skipping variant")
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Errorf("item %d (%s) variant: %w", n+1, item.Name, err))
				continue
			}
			result.Variants++
		}
	}

	i.logger.Info().
		Str("path", path).
		Int("products", result.Products).
		Int("variants", result.Variants).
		Int("skipped", result.Skipped).
		Msg("catalogue import finished")
	return result, nil
}
