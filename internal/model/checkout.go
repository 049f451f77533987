package model

import "strings"

// CheckoutDetails is the contact and shipping data submitted before confirmation.
type CheckoutDetails struct {
	FullName   string `json:"fullName" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Phone      string `json:"phone,omitempty" validate:"max=20"`
	Address    string `json:"address" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=10"`
}

// Normalise trims surrounding whitespace from every field.
func (d CheckoutDetails) Normalise() CheckoutDetails {
	return CheckoutDetails{
		FullName:   strings.TrimSpace(d.FullName),
		Email:      strings.TrimSpace(d.Email),
		Phone:      strings.TrimSpace(d.Phone),
		Address:    strings.TrimSpace(d.Address),
		City:       strings.TrimSpace(d.City),
		State:      strings.TrimSpace(d.State),
		PostalCode: strings.TrimSpace(d.PostalCode),
	}
}

// CheckoutSummary is shown between submitting details and confirming.
type CheckoutSummary struct {
	Cart    *CartView       `json:"cart"`
	Details CheckoutDetails `json:"details"`
}
