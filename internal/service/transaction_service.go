package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/inventory"
	"github.com/yourorg/bizledger/internal/observability/metrics"
	"github.com/yourorg/bizledger/internal/security/audit"
)

// TransactionService drives a transaction from request to committed record.
// Every create passes through four phases: validating, reserving (stock held
// through the ledger), committing (record persisted), committed. A failure
// while committing compensates the reservation with the inverse batch so the
// ledger never carries stock for a transaction that does not exist.
type TransactionService struct {
	transactions domain.TransactionRepository
	contacts     domain.ContactRepository
	products     domain.ProductRepository
	ledger       *inventory.Ledger
	auditor      *audit.Logger
	logger       *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	transactions domain.TransactionRepository,
	contacts domain.ContactRepository,
	products domain.ProductRepository,
	ledger *inventory.Ledger,
	auditor *audit.Logger,
	logger *slog.Logger,
) *TransactionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionService{
		transactions: transactions,
		contacts:     contacts,
		products:     products,
		ledger:       ledger,
		auditor:      auditor,
		logger:       logger,
	}
}

// LineItemInput is one requested line of a transaction.
type LineItemInput struct {
	ProductID string
	Quantity  int
	Price     *float64 // Defaults to the product's current price
}

// TransactionInput carries the create request.
type TransactionInput struct {
	Type           string
	CounterpartyID string // Customer for sales, vendor for purchases
	Items          []LineItemInput
	Timestamp      *time.Time // Defaults to now
}

// TransactionView is a transaction with counterparty and product details
// denormalized for display.
type TransactionView struct {
	Transaction  *domain.Transaction
	Counterparty *ContactSummary
	Products     map[string]*ProductSummary // Keyed by product id; nil entry if deleted
}

// ContactSummary is the subset of a contact shown on transaction listings.
type ContactSummary struct {
	ID    string
	Name  string
	Email string
}

// ProductSummary is the subset of a product shown on transaction listings.
type ProductSummary struct {
	ID    string
	Name  string
	Price float64
}

func (s *TransactionService) validate(ctx context.Context, scope domain.BusinessScope, in TransactionInput) (domain.TransactionType, error) {
	txType := domain.TransactionType(in.Type)
	if !txType.Valid() {
		return "", domain.NewValidationError("type", `Type must be either "sale" or "purchase"`)
	}
	if in.CounterpartyID == "" {
		field := "customerId"
		if txType == domain.TransactionPurchase {
			field = "vendorId"
		}
		return "", domain.NewValidationError(field, "A counterparty is required")
	}
	if len(in.Items) == 0 {
		return "", domain.NewValidationError("items", "At least one line item is required")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID == "" {
			return "", domain.NewValidationError("items", "Every line item must name a product")
		}
		if item.Quantity <= 0 {
			return "", domain.NewValidationError("items", "Line item quantities must be positive")
		}
		if item.Price != nil && *item.Price < 0 {
			return "", domain.NewValidationError("items", "Line item prices must be zero or greater")
		}
		if seen[item.ProductID] {
			return "", domain.NewValidationError("items", "A product may appear at most once per transaction")
		}
		seen[item.ProductID] = true
	}

	contact, err := s.contacts.GetByID(ctx, scope, in.CounterpartyID)
	if err != nil {
		return "", err
	}
	if txType == domain.TransactionSale && contact.Type != domain.ContactCustomer {
		return "", domain.NewValidationError("customerId", "Sales must reference a customer contact")
	}
	if txType == domain.TransactionPurchase && contact.Type != domain.ContactVendor {
		return "", domain.NewValidationError("vendorId", "Purchases must reference a vendor contact")
	}
	return txType, nil
}

// stockDeltas maps line items to the ledger batch: sales consume stock,
// purchases add it.
func stockDeltas(txType domain.TransactionType, items []domain.LineItem) []domain.StockDelta {
	deltas := make([]domain.StockDelta, len(items))
	for i, item := range items {
		delta := item.Quantity
		if txType == domain.TransactionSale {
			delta = -item.Quantity
		}
		deltas[i] = domain.StockDelta{ProductID: item.ProductID, Delta: delta}
	}
	return deltas
}

func invert(deltas []domain.StockDelta) []domain.StockDelta {
	inverse := make([]domain.StockDelta, len(deltas))
	for i, d := range deltas {
		inverse[i] = domain.StockDelta{ProductID: d.ProductID, Delta: -d.Delta}
	}
	return inverse
}

// Create validates the request, reserves stock through the ledger, persists
// the record, and returns the committed transaction. If persisting fails the
// reservation is released by applying the inverse batch.
func (s *TransactionService) Create(ctx context.Context, scope domain.BusinessScope, userID string, in TransactionInput) (*domain.Transaction, error) {
	start := time.Now()

	txType, err := s.validate(ctx, scope, in)
	if err != nil {
		metrics.ObserveTransactionRejected("validation", time.Since(start))
		return nil, err
	}

	items := make([]domain.LineItem, len(in.Items))
	var total float64
	for i, item := range in.Items {
		price := 0.0
		if item.Price != nil {
			price = *item.Price
		} else {
			product, err := s.products.GetByID(ctx, scope, item.ProductID)
			if err != nil {
				metrics.ObserveTransactionRejected("validation", time.Since(start))
				return nil, err
			}
			price = product.Price
		}
		items[i] = domain.LineItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: price}
		total += price * float64(item.Quantity)
	}

	txn := &domain.Transaction{
		ID:          uuid.NewString(),
		Type:        txType,
		Items:       items,
		TotalAmount: total,
		Timestamp:   time.Now(),
	}
	if in.Timestamp != nil {
		txn.Timestamp = *in.Timestamp
	}
	if txType == domain.TransactionSale {
		txn.CustomerID = in.CounterpartyID
	} else {
		txn.VendorID = in.CounterpartyID
	}

	deltas := stockDeltas(txType, items)
	if _, err := s.ledger.AdjustBatch(ctx, scope, deltas); err != nil {
		metrics.ObserveTransactionRejected(rejectionReason(err), time.Since(start))
		s.auditor.LogTransaction(ctx, scope.BusinessID(), userID, txn.ID, "rejected", err.Error())
		return nil, err
	}

	if err := s.transactions.Create(ctx, scope, txn); err != nil {
		s.compensate(ctx, scope, userID, txn.ID, deltas)
		metrics.ObserveTransactionRejected("persist", time.Since(start))
		return nil, err
	}

	metrics.ObserveTransactionCommitted(string(txType), time.Since(start))
	s.auditor.LogTransaction(ctx, scope.BusinessID(), userID, txn.ID, "committed", string(txType))
	s.logger.Info("transaction committed",
		slog.String("transaction_id", txn.ID),
		slog.String("business_id", scope.BusinessID()),
		slog.String("type", string(txType)),
		slog.Int("items", len(items)),
		slog.Float64("total", total),
	)
	return txn, nil
}

// compensate releases a reservation whose record failed to persist. The
// inverse of a successful reservation cannot violate the non-negative stock
// invariant for sales; a purchase reversal can race a concurrent sale of the
// added stock, in which case the discrepancy is logged for operator review
// rather than retried forever.
func (s *TransactionService) compensate(ctx context.Context, scope domain.BusinessScope, userID, txnID string, deltas []domain.StockDelta) {
	if _, err := s.ledger.AdjustBatch(ctx, scope, invert(deltas)); err != nil {
		metrics.ObserveCompensation("failed")
		s.auditor.LogTransaction(ctx, scope.BusinessID(), userID, txnID, "compensation_failed", err.Error())
		s.logger.Error("stock compensation failed, manual reconciliation required",
			slog.String("transaction_id", txnID),
			slog.String("business_id", scope.BusinessID()),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.ObserveCompensation("applied")
	s.auditor.LogTransaction(ctx, scope.BusinessID(), userID, txnID, "compensated", "record persistence failed, reservation released")
}

func rejectionReason(err error) string {
	switch {
	case domain.IsInsufficientStock(err):
		return "insufficient_stock"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsValidation(err):
		return "validation"
	default:
		return "error"
	}
}

// Get returns one transaction with denormalized counterparty and product
// details.
func (s *TransactionService) Get(ctx context.Context, scope domain.BusinessScope, id string) (*TransactionView, error) {
	txn, err := s.transactions.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, scope, txn), nil
}

// List returns all transactions in scope, newest first, with denormalized
// details.
func (s *TransactionService) List(ctx context.Context, scope domain.BusinessScope) ([]*TransactionView, error) {
	txns, err := s.transactions.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	views := make([]*TransactionView, len(txns))
	for i, txn := range txns {
		views[i] = s.view(ctx, scope, txn)
	}
	return views, nil
}

// view resolves display details best-effort. A deleted contact or product
// leaves its summary nil rather than failing the listing.
func (s *TransactionService) view(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) *TransactionView {
	v := &TransactionView{
		Transaction: txn,
		Products:    make(map[string]*ProductSummary, len(txn.Items)),
	}
	if contact, err := s.contacts.GetByID(ctx, scope, txn.CounterpartyID()); err == nil {
		v.Counterparty = &ContactSummary{ID: contact.ID, Name: contact.Name, Email: contact.Email}
	}
	for _, item := range txn.Items {
		if _, ok := v.Products[item.ProductID]; ok {
			continue
		}
		if product, err := s.products.GetByID(ctx, scope, item.ProductID); err == nil {
			v.Products[item.ProductID] = &ProductSummary{ID: product.ID, Name: product.Name, Price: product.Price}
		}
	}
	return v
}

// UpdateInput carries the editable fields of a committed transaction. Line
// items and type are historical facts and cannot change.
type UpdateInput struct {
	CounterpartyID string
	Timestamp      *time.Time
}

// Update edits the counterparty or timestamp of a committed transaction. The
// stock effect already happened, so quantities, products and type are frozen.
func (s *TransactionService) Update(ctx context.Context, scope domain.BusinessScope, id string, in UpdateInput) (*domain.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if in.CounterpartyID != "" && in.CounterpartyID != txn.CounterpartyID() {
		contact, err := s.contacts.GetByID(ctx, scope, in.CounterpartyID)
		if err != nil {
			return nil, err
		}
		if txn.Type == domain.TransactionSale {
			if contact.Type != domain.ContactCustomer {
				return nil, domain.NewValidationError("customerId", "Sales must reference a customer contact")
			}
			txn.CustomerID = in.CounterpartyID
		} else {
			if contact.Type != domain.ContactVendor {
				return nil, domain.NewValidationError("vendorId", "Purchases must reference a vendor contact")
			}
			txn.VendorID = in.CounterpartyID
		}
	}
	if in.Timestamp != nil {
		txn.Timestamp = *in.Timestamp
	}

	if err := s.transactions.Update(ctx, scope, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Delete removes the transaction record only. Stock stays where the
// transaction left it; the movement of goods is not undone by deleting its
// paperwork.
func (s *TransactionService) Delete(ctx context.Context, scope domain.BusinessScope, userID, id string) error {
	if err := s.transactions.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.auditor.LogTransaction(ctx, scope.BusinessID(), userID, id, "deleted", "record removed, stock unchanged")
	return nil
}
