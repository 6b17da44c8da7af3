package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrDuplicateTransactionRef is returned when a payment reference is already
// attached to another order.
var ErrDuplicateTransactionRef = errors.New("payment transaction reference already in use")

const orderColumns = `id, user_id, status, total_amount, currency, payment_transaction_id, needs_review, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalAmount,
		&o.Currency,
		&o.PaymentTransactionID,
		&o.NeedsReview,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, total_amount, currency, payment_transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		string(order.Status),
		order.TotalAmount,
		order.Currency,
		order.PaymentTransactionID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetForUser retrieves an order only if it belongs to userID.
func (r *orderRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order for user")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return order, nil
}

// ListByUser lists a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

// GetByTransactionRef retrieves the order carrying the given payment reference.
func (r *orderRepository) GetByTransactionRef(ctx context.Context, txRef string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_transaction_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, txRef))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("tx_ref", txRef).Msg("no order for transaction reference")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("tx_ref", txRef).Msg("failed to query order by transaction reference")
		return nil, fmt.Errorf("failed to query order by transaction reference: %w", err)
	}
	return order, nil
}

// GetItems retrieves the line items of an order.
func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// SetTransactionRef records the current payment reference while the order is pending.
// A previous reference is overwritten, so a late notification for it no longer
// resolves to this order.
func (r *orderRepository) SetTransactionRef(ctx context.Context, orderID uuid.UUID, txRef string) (bool, error) {
	query := `
		UPDATE orders
		SET payment_transaction_id = $2, needs_review = FALSE, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, orderID, txRef)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateTransactionRef
		}
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("tx_ref", txRef).
			Msg("failed to set transaction reference")
		return false, fmt.Errorf("failed to set transaction reference: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkPaid moves a pending order to paid and reports whether it transitioned.
// The status predicate makes concurrent deliveries race on the row lock; only
// one of them sees a row affected.
func (r *orderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to mark order paid")
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Cancel moves a pending order owned by userID to cancelled.
func (r *orderRepository) Cancel(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, orderID, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to cancel order")
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// FlagForReview marks a pending order for manual review. It leaves
// updated_at alone so the flag does not look like fresh activity.
func (r *orderRepository) FlagForReview(ctx context.Context, orderID uuid.UUID) error {
	query := `UPDATE orders SET needs_review = TRUE WHERE id = $1 AND status = 'pending'`

	if _, err := r.pool.Exec(ctx, query, orderID); err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to flag order for review")
		return fmt.Errorf("failed to flag order for review: %w", err)
	}

	return nil
}

// ListAwaitingPayment lists unflagged pending orders with a payment reference
// whose last update falls between newerThan and olderThan, oldest first.
func (r *orderRepository) ListAwaitingPayment(ctx context.Context, olderThan, newerThan time.Time, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending'
		  AND payment_transaction_id IS NOT NULL
		  AND NOT needs_review
		  AND updated_at <= $1
		  AND updated_at >= $2
		ORDER BY updated_at
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, olderThan, newerThan, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list orders awaiting payment")
		return nil, fmt.Errorf("failed to list orders awaiting payment: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

func (r *orderRepository) collectOrders(rows pgx.Rows) ([]model.Order, error) {
	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
