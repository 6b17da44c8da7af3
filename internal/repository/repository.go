package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves active products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs in one query,
	// including inactive ones.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// DecrementStock lowers stock by qty within the provided transaction,
	// clamping at zero.
	DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) error

	// Create inserts a new product. Returns ErrDuplicateSlug if the slug is taken.
	Create(ctx context.Context, p *model.Product) error

	// Update replaces a product's editable fields. Returns nil if not found.
	Update(ctx context.Context, p *model.Product) (*model.Product, error)

	// Deactivate marks a product inactive and reports whether it exists.
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetForUser retrieves an order only if it belongs to userID.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error)

	// ListByUser lists a user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, error)

	// GetByTransactionRef retrieves the order carrying the given payment reference.
	GetByTransactionRef(ctx context.Context, txRef string) (*model.Order, error)

	// GetItems retrieves the line items of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// SetTransactionRef records the current payment reference while the order is pending.
	SetTransactionRef(ctx context.Context, orderID uuid.UUID, txRef string) (bool, error)

	// MarkPaid moves a pending order to paid and reports whether it transitioned.
	MarkPaid(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (bool, error)

	// Cancel moves a pending order owned by userID to cancelled.
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (bool, error)

	// FlagForReview marks a pending order whose confirmed payment disagrees
	// with its total.
	FlagForReview(ctx context.Context, orderID uuid.UUID) error

	// ListAwaitingPayment lists unflagged pending orders with a payment
	// reference whose last update falls between newerThan and olderThan.
	ListAwaitingPayment(ctx context.Context, olderThan, newerThan time.Time, limit int) ([]model.Order, error)
}
