package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/inventory"
	"github.com/yourorg/bizledger/internal/stockfeed"
	"github.com/yourorg/bizledger/pkg/cache"
)

const productCacheTTL = 30 * time.Second

// ProductService handles product CRUD and stock adjustments. All stock
// mutation goes through the ledger; Update never touches stock.
type ProductService struct {
	products domain.ProductRepository
	ledger   *inventory.Ledger
	cache    *cache.Cache[[]*domain.Product]
	logger   *slog.Logger
}

// NewProductService creates a new product service
func NewProductService(products domain.ProductRepository, ledger *inventory.Ledger, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProductService{
		products: products,
		ledger:   ledger,
		cache:    cache.New[[]*domain.Product](),
		logger:   logger,
	}
	// Stock also moves through the transaction engine, which hits the ledger
	// directly; watching the ledger keeps those writes invalidating too.
	if ledger != nil {
		ledger.Watch(listingCacheInvalidator{s.cache})
	}
	return s
}

// listingCacheInvalidator drops a business's cached product listings whenever
// the ledger commits a stock change.
type listingCacheInvalidator struct {
	cache *cache.Cache[[]*domain.Product]
}

func (i listingCacheInvalidator) Publish(ev stockfeed.StockEvent) {
	i.cache.Invalidate(ev.BusinessID)
}

// ProductInput carries create/update fields. Stock is honored on create only.
type ProductInput struct {
	Name        string
	Description string
	Price       *float64
	Stock       *int
	Category    string
}

func (s *ProductService) validateProductInput(in ProductInput, create bool) error {
	var errs domain.ValidationErrors
	if create || in.Name != "" {
		if len(strings.TrimSpace(in.Name)) < 2 {
			errs = append(errs, domain.NewValidationError("name", "Product name must be at least 2 characters long"))
		}
	}
	if create && in.Price == nil {
		errs = append(errs, domain.NewValidationError("price", "Price is required"))
	}
	if in.Price != nil && *in.Price < 0 {
		errs = append(errs, domain.NewValidationError("price", "Price must be zero or greater"))
	}
	if in.Stock != nil && *in.Stock < 0 {
		errs = append(errs, domain.NewValidationError("stock", "Stock must be zero or greater"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Create validates and stores a new product with its initial stock level.
func (s *ProductService) Create(ctx context.Context, scope domain.BusinessScope, in ProductInput) (*domain.Product, error) {
	if err := s.validateProductInput(in, true); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       *in.Price,
		Category:    strings.TrimSpace(in.Category),
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if err := s.products.Create(ctx, scope, product); err != nil {
		return nil, err
	}
	s.cache.Invalidate(scope.BusinessID())

	s.logger.Info("product created",
		slog.String("product_id", product.ID),
		slog.String("business_id", scope.BusinessID()),
		slog.Int("stock", product.Stock),
	)
	return product, nil
}

// Get returns one product in scope.
func (s *ProductService) Get(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, scope, id)
}

// List returns products in scope matching the filter. Unfiltered listings are
// served from a short-lived cache invalidated on every write.
func (s *ProductService) List(ctx context.Context, scope domain.BusinessScope, filter domain.ProductFilter) ([]*domain.Product, error) {
	unfiltered := filter.Query == "" && filter.Category == ""
	key := scope.BusinessID() + ":all"
	if unfiltered {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	products, err := s.products.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	if unfiltered {
		s.cache.Set(key, products, productCacheTTL)
	}
	return products, nil
}

// Update applies name, description, price and category changes. Stock changes
// through Update are rejected; AdjustStock is the only path.
func (s *ProductService) Update(ctx context.Context, scope domain.BusinessScope, id string, in ProductInput) (*domain.Product, error) {
	if in.Stock != nil {
		return nil, domain.NewValidationError("stock", "Stock cannot be changed through product updates; use the stock adjustment endpoint")
	}
	if err := s.validateProductInput(in, false); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		product.Name = strings.TrimSpace(in.Name)
	}
	if in.Description != "" {
		product.Description = strings.TrimSpace(in.Description)
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Category != "" {
		product.Category = strings.TrimSpace(in.Category)
	}

	if err := s.products.Update(ctx, scope, product); err != nil {
		return nil, err
	}
	s.cache.Invalidate(scope.BusinessID())
	return product, nil
}

// Delete removes a product. Historical transactions referencing it are kept.
func (s *ProductService) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	if err := s.products.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.cache.Invalidate(scope.BusinessID())
	s.logger.Info("product deleted",
		slog.String("product_id", id),
		slog.String("business_id", scope.BusinessID()),
	)
	return nil
}

// AdjustStock atomically applies delta to a product's stock through the
// ledger and returns the new level.
func (s *ProductService) AdjustStock(ctx context.Context, scope domain.BusinessScope, id string, delta int) (int, error) {
	if delta == 0 {
		return 0, domain.NewValidationError("delta", "Adjustment delta must be non-zero")
	}
	// Cache invalidation rides on the ledger watcher.
	stock, err := s.ledger.Adjust(ctx, scope, id, delta)
	if err != nil {
		return 0, err
	}
	return stock, nil
}
