package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProduct inserts an active product and returns it.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) model.Product {
	t.Helper()

	p := model.Product{
		ID:            uuid.New(),
		Name:          name,
		Slug:          fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Price:         decimal.RequireFromString(price),
		Currency:      "MWK",
		StockQuantity: stock,
		IsActive:      true,
	}

	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, slug, price, currency, stock_quantity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Slug, p.Price, p.Currency, p.StockQuantity, p.IsActive)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}

	return p
}

// StockOf reads a product's current stock.
func StockOf(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) int {
	t.Helper()

	var stock int
	if err := pool.QueryRow(context.Background(), "SELECT stock_quantity FROM products WHERE id = $1", id).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}

// StatusOf reads an order's current status.
func StatusOf(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) model.OrderStatus {
	t.Helper()

	var status model.OrderStatus
	if err := pool.QueryRow(context.Background(), "SELECT status FROM orders WHERE id = $1", id).Scan(&status); err != nil {
		t.Fatalf("failed to read order status: %v", err)
	}
	return status
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// FakeGateway imitates the payment gateway's initiate and verify endpoints.
// A session stays unpaid until Pay is called for its reference.
type FakeGateway struct {
	Server *httptest.Server

	mu       sync.Mutex
	sessions map[string]decimal.Decimal
	paid     map[string]decimal.Decimal
	refs     []string
}

// NewFakeGateway starts a fake gateway that is shut down with the test.
func NewFakeGateway(t *testing.T) *FakeGateway {
	t.Helper()

	g := &FakeGateway{
		sessions: make(map[string]decimal.Decimal),
		paid:     make(map[string]decimal.Decimal),
	}

	r := chi.NewRouter()
	r.Post("/payment", g.initiate)
	r.Get("/payment/verify/{txRef}", g.verify)

	g.Server = httptest.NewServer(r)
	t.Cleanup(g.Server.Close)
	return g
}

// Pay records that amount was paid against txRef.
func (g *FakeGateway) Pay(txRef string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[txRef] = amount
}

// LastTxRef returns the reference of the most recent session.
func (g *FakeGateway) LastTxRef() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.refs) == 0 {
		return ""
	}
	return g.refs[len(g.refs)-1]
}

// SessionAmount returns the amount a session was opened for.
func (g *FakeGateway) SessionAmount(txRef string) decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[txRef]
}

func (g *FakeGateway) initiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxRef  string          `json:"tx_ref"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TxRef == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "bad request"})
		return
	}

	g.mu.Lock()
	g.sessions[req.TxRef] = req.Amount
	g.refs = append(g.refs, req.TxRef)
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"message": "Hosted payment session generated successfully.",
		"data":    map[string]string{"checkout_url": "https://checkout.example.test/" + req.TxRef},
	})
}

func (g *FakeGateway) verify(w http.ResponseWriter, r *http.Request) {
	txRef := chi.URLParam(r, "txRef")

	g.mu.Lock()
	amount, paid := g.paid[txRef]
	_, known := g.sessions[txRef]
	g.mu.Unlock()

	if !known {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "transaction not found"})
		return
	}

	status := "pending"
	if paid {
		status = "successful"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data": map[string]any{
			"status":   status,
			"amount":   amount,
			"currency": "MWK",
			"tx_ref":   txRef,
		},
	})
}
