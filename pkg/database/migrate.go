package database

import (
	"context"
	"fmt"
	"log/slog"
)

// migrations are applied in order and tracked in schema_migrations by name, so
// startup is idempotent across restarts.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "001_users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				business_name TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);
		`,
	},
	{
		name: "002_contacts",
		sql: `
			CREATE TABLE IF NOT EXISTS contacts (
				id UUID PRIMARY KEY,
				business_id UUID NOT NULL REFERENCES users(id),
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT NOT NULL,
				address TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL CHECK (type IN ('customer', 'vendor')),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS idx_contacts_business ON contacts(business_id);
		`,
	},
	{
		name: "003_products",
		sql: `
			CREATE TABLE IF NOT EXISTS products (
				id UUID PRIMARY KEY,
				business_id UUID NOT NULL REFERENCES users(id),
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
				stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
				version BIGINT NOT NULL DEFAULT 0,
				category TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS idx_products_business ON products(business_id);
		`,
	},
	{
		name: "004_transactions",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id UUID PRIMARY KEY,
				business_id UUID NOT NULL REFERENCES users(id),
				type TEXT NOT NULL CHECK (type IN ('sale', 'purchase')),
				customer_id UUID,
				vendor_id UUID,
				total_amount NUMERIC(12,2) NOT NULL CHECK (total_amount >= 0),
				occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_business ON transactions(business_id);

			CREATE TABLE IF NOT EXISTS transaction_items (
				transaction_id UUID NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				product_id UUID NOT NULL,
				quantity INTEGER NOT NULL CHECK (quantity > 0),
				price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
				PRIMARY KEY (transaction_id, position)
			);
		`,
	},
}

// Migrate applies pending migrations. Safe to call on every startup.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	_, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := cp.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, m.name,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.name, err)
		}
		if exists {
			continue
		}

		tx, err := cp.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}

		cp.logger.Info("migration applied", slog.String("name", m.name))
	}

	return nil
}
