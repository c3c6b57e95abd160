package domain

import (
	"context"
	"time"
)

// User represents a registered account. A user is also the tenant: the user's
// ID is the business identity under which all contacts, products, and
// transactions are owned.
type User struct {
	ID           string // UUID
	Name         string
	Email        string // Unique, stored lowercase
	Username     string // Unique, stored lowercase
	PasswordHash string // Bcrypt hash (never returned in API responses)
	BusinessName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for users. Lookups are unscoped because
// users are the tenancy roots themselves, resolved during authentication.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
}
