package domain

import (
	"context"
	"time"
)

// ContactType distinguishes customers from vendors. Sales must reference a
// customer, purchases a vendor.
type ContactType string

const (
	ContactCustomer ContactType = "customer"
	ContactVendor   ContactType = "vendor"
)

// Valid reports whether t is a known contact type.
func (t ContactType) Valid() bool {
	return t == ContactCustomer || t == ContactVendor
}

// Contact is a customer or vendor belonging to exactly one business.
type Contact struct {
	ID         string // UUID
	Name       string
	Email      string // Stored lowercase
	Phone      string
	Address    string // Optional
	Type       ContactType
	BusinessID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ContactRepository defines data access for contacts. Every method is scoped;
// a contact owned by another business behaves as if it does not exist.
type ContactRepository interface {
	Create(ctx context.Context, scope BusinessScope, contact *Contact) error
	GetByID(ctx context.Context, scope BusinessScope, id string) (*Contact, error)
	List(ctx context.Context, scope BusinessScope) ([]*Contact, error)
	Update(ctx context.Context, scope BusinessScope, contact *Contact) error
	Delete(ctx context.Context, scope BusinessScope, id string) error
}
