// Command catalog-import creates products and variants from a gzipped
// JSON-lines feed, read from S3 when enabled and from disk otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	feed := flag.String("feed", "", "feed path (S3 key below S3_PREFIX, or a local file)")
	flag.Parse()
	if *feed == "" {
		return errors.New("-feed is required")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	fileLoader := catalog.NewFileLoader(logger)
	loader := fileLoader
	if cfg.S3.Enabled {
		s3Loader, err := catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			loader = catalog.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
		}
	} else {
		logger.Info().Msg("using local file system for catalog feeds (S3 disabled)")
	}

	catalogService := service.NewCatalogService(repository.NewProductRepository(pool, logger), logger)
	importer := catalog.NewImporter(loader, catalogService, logger)

	result, err := importer.Import(ctx, *feed)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	logger.Info().
		Int("products", result.Products).
		Int("variants", result.Variants).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("catalog import finished")

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d feed items failed", len(result.Errors))
	}
	return nil
}
