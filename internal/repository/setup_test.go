package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the application schema
// and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedProduct inserts a product and returns it.
func seedProduct(t *testing.T, pool *pgxpool.Pool, name string, price string, stock int, active bool) model.Product {
	t.Helper()

	p := model.Product{
		ID:            uuid.New(),
		Name:          name,
		Slug:          fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Price:         decimal.RequireFromString(price),
		Currency:      "MWK",
		StockQuantity: stock,
		IsActive:      active,
	}

	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, slug, price, currency, stock_quantity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Slug, p.Price, p.Currency, p.StockQuantity, p.IsActive)
	require.NoError(t, err)

	return p
}

// seedOrder inserts a pending order with one item per product and returns it.
func seedOrder(t *testing.T, repo OrderRepository, userID uuid.UUID, txRef *string, lines map[*model.Product]int) *model.Order {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	order := &model.Order{
		ID:                   uuid.New(),
		UserID:               userID,
		Status:               model.OrderStatusPending,
		Currency:             "MWK",
		PaymentTransactionID: txRef,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	items := make([]model.OrderItem, 0, len(lines))
	total := decimal.Zero
	for p, qty := range lines {
		item := model.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       p.ID,
			Quantity:        qty,
			PriceAtPurchase: p.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}
	order.TotalAmount = total

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, tx.Commit(ctx))

	return order
}

func stockOf(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) int {
	t.Helper()
	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock_quantity FROM products WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)
	return stock
}
