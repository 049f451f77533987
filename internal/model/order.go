package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the operational state of an order. Any value may follow any other.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// PaymentMethodSimulated marks orders created without a payment gateway.
const PaymentMethodSimulated = "simulated"

// Order is the snapshot created by checkout. Only status and payment fields change afterwards.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        *uuid.UUID      `json:"userId,omitempty" db:"user_id"`
	SessionToken  *string         `json:"-" db:"session_token"`
	Status        OrderStatus     `json:"status" db:"status"`
	Total         decimal.Decimal `json:"total" db:"total"`
	FullName      string          `json:"fullName" db:"full_name"`
	Email         string          `json:"email" db:"email"`
	Phone         *string         `json:"phone,omitempty" db:"phone"`
	Address       string          `json:"address" db:"address"`
	City          string          `json:"city" db:"city"`
	State         string          `json:"state" db:"state"`
	PostalCode    string          `json:"postalCode" db:"postal_code"`
	PaymentMethod string          `json:"paymentMethod" db:"payment_method"`
	TransactionID *string         `json:"transactionId,omitempty" db:"transaction_id"`
	Paid          bool            `json:"paid" db:"paid"`
	PaidAt        *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	Lines         []OrderLine     `json:"lines"`
}

// CalculateTotal sums the line subtotals.
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// OwnedBy reports whether the identity placed this order.
func (o *Order) OwnedBy(id Identity) bool {
	if id.UserID != nil {
		return o.UserID != nil && *o.UserID == *id.UserID
	}
	return id.SessionToken != "" && o.SessionToken != nil && *o.SessionToken == id.SessionToken
}

// OrderLine freezes the unit price at purchase time.
type OrderLine struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	VariantID   uuid.UUID       `json:"variantId" db:"variant_id"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	SKU         string          `json:"sku,omitempty"`
	ProductName string          `json:"productName,omitempty"`
}

// Subtotal is quantity times the frozen unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// UpdateStatusRequest is the staff payload for a single order.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BatchStatusRequest is the staff payload for changing several orders at once.
type BatchStatusRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1"`
	Status   string      `json:"status" validate:"required"`
}

// MarkPaidRequest is the staff payload for recording payment.
type MarkPaidRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1"`
}

// StatusChange records one applied status transition.
type StatusChange struct {
	Order    Order       `json:"order"`
	Previous OrderStatus `json:"previous"`
}
