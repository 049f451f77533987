package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error      string           `json:"error"`
	Message    string           `json:"message"`
	Fields     []FieldError     `json:"fields,omitempty"`
	Violations []StockViolation `json:"violations,omitempty"`
	RequestID  string           `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeCartLineNotFound   = "CART_LINE_NOT_FOUND"
	ErrCodeVariantNotFound    = "VARIANT_NOT_FOUND"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeDuplicateVariant   = "DUPLICATE_VARIANT"
	ErrCodeCheckoutMissing    = "CHECKOUT_DETAILS_MISSING"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountExists      = "ACCOUNT_EXISTS"
	ErrCodeMissingIdentity    = "MISSING_IDENTITY"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// ErrorKind classifies an error into the category the transport reports.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindForbidden
	KindNotFound
	KindUnauthorised
)

// DomainError is a business-rule rejection. No state has changed when one is returned.
type DomainError struct {
	Code    string
	Message string
	Kind    ErrorKind
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity    = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be at least 1")
	ErrEmptyCart          = NewDomainError(KindValidation, ErrCodeEmptyCart, "Cart is empty")
	ErrCheckoutMissing    = NewDomainError(KindValidation, ErrCodeCheckoutMissing, "Checkout details not found, submit the checkout form first")
	ErrInvalidStatus      = NewDomainError(KindValidation, ErrCodeInvalidStatus, "Order status must be one of pending, processing, shipped, delivered, canceled")
	ErrMissingIdentity    = NewDomainError(KindValidation, ErrCodeMissingIdentity, "Request carries neither a user nor a session token")
	ErrCartLineNotFound   = NewDomainError(KindNotFound, ErrCodeCartLineNotFound, "Cart line not found")
	ErrVariantNotFound    = NewDomainError(KindNotFound, ErrCodeVariantNotFound, "Product variant not found")
	ErrProductNotFound    = NewDomainError(KindNotFound, ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound      = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrNotLineOwner       = NewDomainError(KindForbidden, ErrCodeForbidden, "Cart line does not belong to the current customer")
	ErrDuplicateVariant   = NewDomainError(KindConflict, ErrCodeDuplicateVariant, "A variant with this color and size already exists")
	ErrAccountExists      = NewDomainError(KindConflict, ErrCodeAccountExists, "Username or email already registered")
	ErrInvalidCredentials = NewDomainError(KindUnauthorised, ErrCodeInvalidCredentials, "Invalid username or password")
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every invalid field of a submitted form at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StockViolation describes one line whose quantity exceeds what is available.
type StockViolation struct {
	VariantID uuid.UUID `json:"variantId"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

func (v StockViolation) String() string {
	return fmt.Sprintf("%s (requested %d, %d remaining)", v.Name, v.Requested, v.Available)
}

// StockConflictError lists every line that cannot be satisfied from current stock.
type StockConflictError struct {
	Violations []StockViolation
}

func (e *StockConflictError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// KindOf classifies err for the transport layer.
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	var stockErr *StockConflictError
	if errors.As(err, &stockErr) {
		return KindConflict
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}
	return KindInternal
}

// CodeOf returns the API error code for err.
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var stockErr *StockConflictError
	if errors.As(err, &stockErr) {
		return ErrCodeInsufficientStock
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrCodeValidationFailed
	}
	return ErrCodeInternalError
}
