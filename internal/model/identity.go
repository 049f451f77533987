package model

import "github.com/google/uuid"

// Identity owns a cart: an authenticated user, or else an anonymous session token.
type Identity struct {
	UserID       *uuid.UUID
	SessionToken string
}

// UserIdentity returns the identity of an authenticated user.
func UserIdentity(id uuid.UUID) Identity {
	return Identity{UserID: &id}
}

// SessionIdentity returns the identity of an anonymous visitor.
func SessionIdentity(token string) Identity {
	return Identity{SessionToken: token}
}

// IsAuthenticated reports whether a user is logged in.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil
}

// IsZero reports whether the identity carries nothing usable.
func (i Identity) IsZero() bool {
	return i.UserID == nil && i.SessionToken == ""
}

// Key is a stable string for keyed stores.
func (i Identity) Key() string {
	if i.UserID != nil {
		return "user:" + i.UserID.String()
	}
	return "session:" + i.SessionToken
}

// Owns reports whether cart belongs to this identity.
func (i Identity) Owns(cart *Cart) bool {
	if cart == nil {
		return false
	}
	if i.UserID != nil {
		return cart.UserID != nil && *cart.UserID == *i.UserID
	}
	return i.SessionToken != "" && cart.SessionToken != nil && *cart.SessionToken == i.SessionToken
}
