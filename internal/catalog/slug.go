package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, folds accents to ASCII, drops punctuation and joins
// words with single hyphens: "Camisa Básica Nº 1" becomes "camisa-basica-no-1".
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r > unicode.MaxASCII:
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return strings.Trim(b.String(), "-_")
}

// SKU builds the stock keeping unit for a variant:
// upper(slug(name)[:50]-slug(color)[:20]-slug(size)[:10]), with every run of
// characters outside [A-Z0-9] collapsed to one hyphen.
func SKU(productName, color, size string) string {
	raw := strings.ToUpper(fmt.Sprintf("%s-%s-%s",
		truncate(Slugify(productName), 50),
		truncate(Slugify(color), 20),
		truncate(Slugify(size), 10),
	))

	var b strings.Builder
	pendingDash := false
	for _, r := range raw {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Unique returns base, or base-1, base-2, ... for the first candidate taken reports free.
func Unique(ctx context.Context, base string, taken func(context.Context, string) (bool, error)) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
