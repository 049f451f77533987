// Package session issues anonymous session tokens and keeps checkout drafts
// between the details form and order confirmation.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"storefront/internal/model"
)

// tokenBytes yields 64 hex characters, the width of carts.session_token.
const tokenBytes = 32

// NewToken returns a random opaque session token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidToken reports whether s looks like a token from NewToken.
func ValidToken(s string) bool {
	if len(s) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// DraftStore holds submitted checkout details per identity until confirmation.
type DraftStore interface {
	// Save stores details for key, replacing any previous draft.
	Save(ctx context.Context, key string, details model.CheckoutDetails, ttl time.Duration) error

	// Load returns the draft for key, or nil when none is stored or it expired.
	Load(ctx context.Context, key string) (*model.CheckoutDetails, error)

	// Discard removes the draft for key. Missing drafts are not an error.
	Discard(ctx context.Context, key string) error
}
