package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/yourorg/bizledger/internal/domain"
)

// PostgresContactRepository implements domain.ContactRepository using PostgreSQL
type PostgresContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresContactRepository creates a new contact repository
func NewPostgresContactRepository(db *sql.DB, logger *slog.Logger) *PostgresContactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContactRepository{db: db, logger: logger}
}

const contactColumns = `id, business_id, name, email, phone, address, type, created_at, updated_at`

// Create creates a new contact under the scope's business
func (r *PostgresContactRepository) Create(ctx context.Context, scope domain.BusinessScope, contact *domain.Contact) error {
	contact.BusinessID = scope.BusinessID()
	query := `
		INSERT INTO contacts (id, business_id, name, email, phone, address, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		contact.ID,
		contact.BusinessID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Address,
		contact.Type,
	).Scan(&contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create contact",
			slog.String("business_id", scope.BusinessID()),
			slog.String("error", err.Error()),
		)
		return storeError("create contact", err)
	}
	return nil
}

// GetByID retrieves a contact by id within the scope's business
func (r *PostgresContactRepository) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Contact, error) {
	c := &domain.Contact{}
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND business_id = $2`

	err := r.db.QueryRowContext(ctx, query, id, scope.BusinessID()).Scan(
		&c.ID, &c.BusinessID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Type,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("contact", id)
		}
		return nil, storeError("get contact", err)
	}
	return c, nil
}

// List returns all contacts for the scope's business
func (r *PostgresContactRepository) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE business_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, scope.BusinessID())
	if err != nil {
		return nil, storeError("list contacts", err)
	}
	defer rows.Close()

	var out []*domain.Contact
	for rows.Next() {
		c := &domain.Contact{}
		if err := rows.Scan(
			&c.ID, &c.BusinessID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Type,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, storeError("scan contact", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list contacts", err)
	}
	return out, nil
}

// Update updates an existing contact within the scope's business
func (r *PostgresContactRepository) Update(ctx context.Context, scope domain.BusinessScope, contact *domain.Contact) error {
	query := `
		UPDATE contacts
		SET name = $1, email = $2, phone = $3, address = $4, type = $5, updated_at = now()
		WHERE id = $6 AND business_id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Address,
		contact.Type,
		contact.ID,
		scope.BusinessID(),
	).Scan(&contact.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("contact", contact.ID)
		}
		return storeError("update contact", err)
	}
	return nil
}

// Delete removes a contact within the scope's business
func (r *PostgresContactRepository) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND business_id = $2`, id, scope.BusinessID())
	if err != nil {
		return storeError("delete contact", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return storeError("delete contact", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("contact", id)
	}
	return nil
}
