// Package catalog derives product slugs and variant SKUs and imports catalogue
// feeds from the local file system or S3.
package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"storefront/internal/model"
)

// FeedItem is one line of a catalogue feed: a product and its variants.
type FeedItem struct {
	model.CreateProductRequest
	Variants []model.CreateVariantRequest `json:"variants"`
}

// Loader reads a catalogue feed.
type Loader interface {
	// Load reads every item from the feed at path.
	Load(ctx context.Context, path string) ([]FeedItem, error)
}

// decodeFeed reads JSON lines, transparently gunzipping when gzipped is set.
// Blank lines and lines starting with '#' are skipped.
func decodeFeed(ctx context.Context, r io.Reader, gzipped bool) ([]FeedItem, error) {
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var items []FeedItem
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var item FeedItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	return items, nil
}

func isGzip(path string) bool {
	return strings.HasSuffix(path, ".gz")
}
