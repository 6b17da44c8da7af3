package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order may move from one status to another.
// Paid is terminal.
func CanTransition(from, to OrderStatus) bool {
	if from != OrderStatusPending {
		return false
	}
	switch to {
	case OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order represents a customer purchase intent.
type Order struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	UserID               uuid.UUID       `json:"userId" db:"user_id"`
	Status               OrderStatus     `json:"status" db:"status"`
	TotalAmount          decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Currency             string          `json:"currency" db:"currency"`
	PaymentTransactionID *string         `json:"paymentTransactionId,omitempty" db:"payment_transaction_id"`
	NeedsReview          bool            `json:"needsReview" db:"needs_review"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order. PriceAtPurchase is a snapshot
// taken at checkout and never follows later catalogue price changes.
type OrderItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"-" db:"order_id"`
	ProductID       uuid.UUID       `json:"productId" db:"product_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase" db:"price_at_purchase"`
}

// Subtotal returns PriceAtPurchase × Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CheckoutRequest represents the request payload for starting a checkout.
type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
	Email string         `json:"email"`
}

// CheckoutItem represents a single cart line in a checkout request.
type CheckoutItem struct {
	ID       uuid.UUID `json:"id"`
	Quantity int       `json:"quantity"`
}

// CheckoutResponse is returned once a payment session has been opened.
type CheckoutResponse struct {
	OrderID     uuid.UUID `json:"orderId"`
	CheckoutURL string    `json:"checkout_url"`
}

// OrderResponse represents an order together with its line items.
type OrderResponse struct {
	Order
	Items []OrderItem `json:"items"`
}
