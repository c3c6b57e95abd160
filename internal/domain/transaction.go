package domain

import (
	"context"
	"time"
)

// TransactionType distinguishes sales from purchases.
type TransactionType string

const (
	TransactionSale     TransactionType = "sale"
	TransactionPurchase TransactionType = "purchase"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionSale || t == TransactionPurchase
}

// LineItem is one (product, quantity, price) entry within a transaction.
type LineItem struct {
	ProductID string
	Quantity  int
	Price     float64
}

// Transaction is a committed sale or purchase record. Once committed it is a
// historical fact: deleting it does not reverse its stock effect, and line-item
// quantities cannot be edited afterwards.
type Transaction struct {
	ID          string // UUID
	Type        TransactionType
	CustomerID  string // Set iff Type == sale
	VendorID    string // Set iff Type == purchase
	Items       []LineItem
	TotalAmount float64
	BusinessID  string
	Timestamp   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CounterpartyID returns the customer or vendor id, whichever applies.
func (t *Transaction) CounterpartyID() string {
	if t.Type == TransactionSale {
		return t.CustomerID
	}
	return t.VendorID
}

// TransactionRepository defines data access for transaction records.
type TransactionRepository interface {
	Create(ctx context.Context, scope BusinessScope, txn *Transaction) error
	GetByID(ctx context.Context, scope BusinessScope, id string) (*Transaction, error)
	List(ctx context.Context, scope BusinessScope) ([]*Transaction, error)
	Update(ctx context.Context, scope BusinessScope, txn *Transaction) error
	Delete(ctx context.Context, scope BusinessScope, id string) error
}
