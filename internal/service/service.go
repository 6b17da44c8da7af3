package service

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for browsing the catalogue.
type ProductService interface {
	// GetAll retrieves active products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// OrderService defines a customer's view of their own orders.
type OrderService interface {
	// GetByID retrieves an order owned by userID with all items.
	GetByID(ctx context.Context, userID, orderID uuid.UUID) (*model.OrderResponse, error)

	// List retrieves the caller's orders, newest first.
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, error)

	// Cancel moves a pending order owned by userID to cancelled.
	Cancel(ctx context.Context, userID, orderID uuid.UUID) error
}

// CheckoutService turns carts and pending orders into hosted payment sessions.
type CheckoutService interface {
	// Checkout validates a cart, records a pending order and opens a payment session.
	Checkout(ctx context.Context, customer model.Customer, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// Recheckout opens a fresh payment session for a pending order owned by the customer.
	Recheckout(ctx context.Context, customer model.Customer, orderID uuid.UUID) (*model.CheckoutResponse, error)
}

// Reconciler settles orders from gateway payment notifications.
type Reconciler interface {
	// HandleWebhook authenticates a raw notification and settles the payment it names.
	HandleWebhook(ctx context.Context, body []byte, signature string) (*model.ReconcileResult, error)

	// Settle confirms txRef with the gateway and marks the matching order paid.
	Settle(ctx context.Context, txRef string) (*model.ReconcileResult, error)
}

// AdminProductService manages the catalogue on behalf of admin callers.
type AdminProductService interface {
	// Create adds a product. Returns model.ErrSlugTaken if the slug is in use.
	Create(ctx context.Context, in *model.ProductInput) (*model.Product, error)

	// Update replaces a product's fields. A nil ImageURLs keeps the stored images.
	Update(ctx context.Context, id uuid.UUID, in *model.ProductInput) (*model.Product, error)

	// Delete withdraws a product from sale.
	Delete(ctx context.Context, id uuid.UUID) error
}
