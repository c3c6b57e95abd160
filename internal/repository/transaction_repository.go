package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/yourorg/bizledger/internal/domain"
)

// PostgresTransactionRepository implements domain.TransactionRepository using
// PostgreSQL. A transaction row plus its ordered transaction_items rows are
// written in one SQL transaction.
type PostgresTransactionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTransactionRepository creates a new transaction repository
func NewPostgresTransactionRepository(db *sql.DB, logger *slog.Logger) *PostgresTransactionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTransactionRepository{db: db, logger: logger}
}

// Create persists a transaction record and its line items
func (r *PostgresTransactionRepository) Create(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) error {
	txn.BusinessID = scope.BusinessID()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("create transaction", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, business_id, type, customer_id, vendor_id, total_amount, occurred_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING created_at, updated_at
	`,
		txn.ID,
		txn.BusinessID,
		txn.Type,
		txn.CustomerID,
		txn.VendorID,
		txn.TotalAmount,
		txn.Timestamp,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return storeError("create transaction", err)
	}

	if err := r.insertItems(ctx, tx, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError("create transaction", err)
	}
	return nil
}

func (r *PostgresTransactionRepository) insertItems(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error {
	for i, item := range txn.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, position, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, txn.ID, i, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return storeError("create transaction items", err)
		}
	}
	return nil
}

// GetByID retrieves a transaction with its line items
func (r *PostgresTransactionRepository) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	var customerID, vendorID sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, business_id, type, customer_id, vendor_id, total_amount, occurred_at, created_at, updated_at
		FROM transactions
		WHERE id = $1 AND business_id = $2
	`, id, scope.BusinessID()).Scan(
		&txn.ID, &txn.BusinessID, &txn.Type, &customerID, &vendorID,
		&txn.TotalAmount, &txn.Timestamp, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("transaction", id)
		}
		return nil, storeError("get transaction", err)
	}
	txn.CustomerID = customerID.String
	txn.VendorID = vendorID.String

	items, err := r.loadItems(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	txn.Items = items
	return txn, nil
}

// List returns all transactions for the scope's business, newest first
func (r *PostgresTransactionRepository) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, type, customer_id, vendor_id, total_amount, occurred_at, created_at, updated_at
		FROM transactions
		WHERE business_id = $1
		ORDER BY occurred_at DESC
	`, scope.BusinessID())
	if err != nil {
		return nil, storeError("list transactions", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		txn := &domain.Transaction{}
		var customerID, vendorID sql.NullString
		if err := rows.Scan(
			&txn.ID, &txn.BusinessID, &txn.Type, &customerID, &vendorID,
			&txn.TotalAmount, &txn.Timestamp, &txn.CreatedAt, &txn.UpdatedAt,
		); err != nil {
			return nil, storeError("scan transaction", err)
		}
		txn.CustomerID = customerID.String
		txn.VendorID = vendorID.String
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list transactions", err)
	}

	for _, txn := range out {
		items, err := r.loadItems(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
		txn.Items = items
	}
	return out, nil
}

func (r *PostgresTransactionRepository) loadItems(ctx context.Context, transactionID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, price
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY position ASC
	`, transactionID)
	if err != nil {
		return nil, storeError("load transaction items", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, storeError("scan transaction item", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update rewrites a transaction's mutable fields and line items
func (r *PostgresTransactionRepository) Update(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("update transaction", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE transactions
		SET type = $1, customer_id = NULLIF($2, ''), vendor_id = NULLIF($3, ''), total_amount = $4, occurred_at = $5, updated_at = now()
		WHERE id = $6 AND business_id = $7
		RETURNING updated_at
	`,
		txn.Type, txn.CustomerID, txn.VendorID, txn.TotalAmount, txn.Timestamp, txn.ID, scope.BusinessID(),
	).Scan(&txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("transaction", txn.ID)
		}
		return storeError("update transaction", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_items WHERE transaction_id = $1`, txn.ID); err != nil {
		return storeError("update transaction items", err)
	}
	if err := r.insertItems(ctx, tx, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError("update transaction", err)
	}
	return nil
}

// Delete removes a transaction record. The historical stock effect is kept.
func (r *PostgresTransactionRepository) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND business_id = $2`, id, scope.BusinessID())
	if err != nil {
		return storeError("delete transaction", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return storeError("delete transaction", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("transaction", id)
	}
	return nil
}
