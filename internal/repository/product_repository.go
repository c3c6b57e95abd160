package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"

	"github.com/yourorg/bizledger/internal/domain"
)

// PostgresProductRepository implements domain.ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProductRepository creates a new product repository
func NewPostgresProductRepository(db *sql.DB, logger *slog.Logger) *PostgresProductRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProductRepository{db: db, logger: logger}
}

const productColumns = `id, business_id, name, description, price, stock, version, category, created_at, updated_at`

// Create creates a new product under the scope's business
func (r *PostgresProductRepository) Create(ctx context.Context, scope domain.BusinessScope, product *domain.Product) error {
	product.BusinessID = scope.BusinessID()
	query := `
		INSERT INTO products (id, business_id, name, description, price, stock, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		product.ID,
		product.BusinessID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
	).Scan(&product.Version, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create product",
			slog.String("business_id", scope.BusinessID()),
			slog.String("error", err.Error()),
		)
		return storeError("create product", err)
	}
	return nil
}

// GetByID retrieves a product by id within the scope's business
func (r *PostgresProductRepository) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND business_id = $2`

	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id, scope.BusinessID()).Scan(
		&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Version,
		&p.Category, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("product", id)
		}
		return nil, storeError("get product", err)
	}
	return p, nil
}

// List returns products for the scope's business, optionally filtered by name
// substring and category, sorted by name.
func (r *PostgresProductRepository) List(ctx context.Context, scope domain.BusinessScope, filter domain.ProductFilter) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE business_id = $1`
	args := []any{scope.BusinessID()}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += ` AND name ILIKE $2`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		if filter.Query != "" {
			query += ` AND category = $3`
		} else {
			query += ` AND category = $2`
		}
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list products", err)
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(
			&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Version,
			&p.Category, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, storeError("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list products", err)
	}
	return out, nil
}

// Update updates a product's descriptive fields. Stock is deliberately not
// written here; it changes only through AdjustStockBatch.
func (r *PostgresProductRepository) Update(ctx context.Context, scope domain.BusinessScope, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, updated_at = now()
		WHERE id = $5 AND business_id = $6
		RETURNING stock, version, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.ID,
		scope.BusinessID(),
	).Scan(&product.Stock, &product.Version, &product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("product", product.ID)
		}
		return storeError("update product", err)
	}
	return nil
}

// Delete removes a product within the scope's business
func (r *PostgresProductRepository) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM products WHERE id = $1 AND business_id = $2`, id, scope.BusinessID())
	if err != nil {
		return storeError("delete product", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return storeError("delete product", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("product", id)
	}
	return nil
}

// AdjustStockBatch applies all deltas inside one SQL transaction, or none.
// The conditional update refuses any change that would drive stock negative,
// and row locks taken by UPDATE serialize concurrent adjustments per product.
// Products are processed in id order so concurrent batches acquire locks in
// the same order and cannot deadlock each other.
func (r *PostgresProductRepository) AdjustStockBatch(ctx context.Context, scope domain.BusinessScope, deltas []domain.StockDelta) ([]domain.StockLevel, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	ordered := make([]domain.StockDelta, len(deltas))
	copy(ordered, deltas)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("adjust stock batch", err)
	}
	defer tx.Rollback()

	levels := make([]domain.StockLevel, 0, len(ordered))
	for _, d := range ordered {
		var newStock int
		err := tx.QueryRowContext(ctx, `
			UPDATE products
			SET stock = stock + $1, version = version + 1, updated_at = now()
			WHERE id = $2 AND business_id = $3 AND stock + $1 >= 0
			RETURNING stock
		`, d.Delta, d.ProductID, scope.BusinessID()).Scan(&newStock)

		if err == nil {
			levels = append(levels, domain.StockLevel{ProductID: d.ProductID, Stock: newStock})
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, storeError("adjust stock batch", err)
		}

		// The update matched nothing: either the product is absent for this
		// business, or the delta would go negative. Distinguish inside the
		// same transaction so the answer is consistent with the locks held.
		var available int
		checkErr := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 AND business_id = $2`,
			d.ProductID, scope.BusinessID(),
		).Scan(&available)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("product", d.ProductID)
		}
		if checkErr != nil {
			return nil, storeError("adjust stock batch", checkErr)
		}
		return nil, &domain.InsufficientStockError{
			ProductID: d.ProductID,
			Available: available,
			Requested: -d.Delta,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("adjust stock batch", err)
	}
	return levels, nil
}
