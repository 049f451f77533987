package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered customer or staff member.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// DisplayName is the full name when known, else the username.
func (u User) DisplayName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// Profile holds optional customer defaults used to prefill checkout.
type Profile struct {
	UserID            uuid.UUID `json:"userId" db:"user_id"`
	Phone             *string   `json:"phone,omitempty" db:"phone"`
	DefaultAddress    *string   `json:"defaultAddress,omitempty" db:"default_address"`
	DefaultCity       *string   `json:"defaultCity,omitempty" db:"default_city"`
	DefaultState      *string   `json:"defaultState,omitempty" db:"default_state"`
	DefaultPostalCode *string   `json:"defaultPostalCode,omitempty" db:"default_postal_code"`
	EmailVerified     bool      `json:"emailVerified" db:"email_verified"`
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"max=150"`
	LastName  string `json:"lastName" validate:"max=150"`
}

// LoginRequest accepts either a username or an email as Login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}
