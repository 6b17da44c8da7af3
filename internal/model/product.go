package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents an item in the storefront catalogue.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Slug          string          `json:"slug" db:"slug"`
	Description   *string         `json:"description,omitempty" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Currency      string          `json:"currency" db:"currency"`
	Category      *string         `json:"category,omitempty" db:"category"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	ImageURLs     []string        `json:"imageUrls" db:"image_urls"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// ProductInput is the admin payload for creating or replacing a product.
// A nil ImageURLs on update keeps the stored images.
type ProductInput struct {
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Category      *string         `json:"category,omitempty"`
	StockQuantity int             `json:"stockQuantity"`
	IsActive      bool            `json:"isActive"`
	ImageURLs     []string        `json:"imageUrls"`
}
