package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"storefront/internal/catalog"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// generateSampleFeed writes a small gzipped JSON-lines catalogue feed for
// cmd/catalog-import. "Camisa Básica" appears twice to exercise slug suffixes
// and its second entry repeats a color/size pair, which the importer skips.
func main() {
	dataDir := "data/catalog"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	items := []catalog.FeedItem{
		product("Camisa Básica", "shirts", "59.90", "25.00", 0, true,
			variant("Azul", "M", 10, "0"),
			variant("Azul", "G", 4, "5.00"),
			variant("Preto", "M", 0, "0"),
		),
		product("Camisa Básica", "shirts", "64.90", "27.00", 10, false,
			variant("Branco", "P", 6, "0"),
			variant("Branco", "P", 2, "0"),
		),
		product("Boné Trucker", "hats", "39.00", "12.00", 15, false,
			variant("Vermelho", "", 8, "0"),
		),
		product("Meia Esportiva", "socks", "15.00", "4.50", 0, false,
			variant("", "", 50, "0"),
		),
	}

	filePath := filepath.Join(dataDir, "sample.jsonl.gz")
	if err := writeFeed(filePath, items); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d products\n", filePath, len(items))
	fmt.Println("\nImport it with:")
	fmt.Printf("  go run ./cmd/catalog-import -feed %s\n", filePath)
}

func product(name, category, sell, purchase string, discount int, featured bool, variants ...model.CreateVariantRequest) catalog.FeedItem {
	return catalog.FeedItem{
		CreateProductRequest: model.CreateProductRequest{
			Name:            name,
			Category:        category,
			SellPrice:       decimal.RequireFromString(sell),
			PurchasePrice:   decimal.RequireFromString(purchase),
			DiscountPercent: discount,
			Featured:        featured,
		},
		Variants: variants,
	}
}

func variant(color, size string, stock int, adjustment string) model.CreateVariantRequest {
	v := model.CreateVariantRequest{
		Stock:           stock,
		PriceAdjustment: decimal.RequireFromString(adjustment),
	}
	if color != "" {
		v.Color = &color
	}
	if size != "" {
		v.Size = &size
	}
	return v
}

func writeFeed(filePath string, items []catalog.FeedItem) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	enc := json.NewEncoder(gzWriter)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write item %q: %w", item.Name, err)
		}
	}
	return nil
}
