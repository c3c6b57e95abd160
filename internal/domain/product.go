package domain

import (
	"context"
	"time"
)

// Product is a sellable or purchasable item belonging to one business.
// Stock is never negative; it is mutated only through the inventory ledger's
// atomic adjustments, never by direct field writes.
type Product struct {
	ID          string // UUID
	Name        string
	Description string // Optional
	Price       float64
	Stock       int
	Version     int64  // Bumped on every stock adjustment
	Category    string // Optional
	BusinessID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Query    string // Case-insensitive name substring
	Category string
}

// StockDelta is one entry of a batch stock adjustment.
type StockDelta struct {
	ProductID string
	Delta     int
}

// StockLevel is the post-adjustment stock of a product.
type StockLevel struct {
	ProductID string
	Stock     int
}

// ProductRepository defines data access for products. AdjustStockBatch applies
// every delta atomically or none: if any entry would drive stock negative or
// names a missing product, no stock change is observable by other callers.
// Concurrent adjustments to the same product serialize.
type ProductRepository interface {
	Create(ctx context.Context, scope BusinessScope, product *Product) error
	GetByID(ctx context.Context, scope BusinessScope, id string) (*Product, error)
	List(ctx context.Context, scope BusinessScope, filter ProductFilter) ([]*Product, error)
	Update(ctx context.Context, scope BusinessScope, product *Product) error
	Delete(ctx context.Context, scope BusinessScope, id string) error
	AdjustStockBatch(ctx context.Context, scope BusinessScope, deltas []StockDelta) ([]StockLevel, error)
}
