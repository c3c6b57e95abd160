package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/inventory"
	"github.com/yourorg/bizledger/internal/security/audit"
)

// In-memory repositories sharing the atomicity contracts of the Postgres
// implementations, used by every service test in this package.

var testScope = domain.NewBusinessScope("biz-1")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditor() *audit.Logger {
	return audit.NewLogger(testLogger())
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // by id
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return domain.NewValidationError("email", "Email or username already exists")
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("user", email)
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("user", username)
}

func (m *memUserRepo) Update(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return domain.NewNotFoundError("user", u.ID)
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

type memContactRepo struct {
	mu       sync.Mutex
	contacts map[string]*domain.Contact // by business/id
}

func newMemContactRepo() *memContactRepo {
	return &memContactRepo{contacts: map[string]*domain.Contact{}}
}

func contactKey(businessID, id string) string { return businessID + "/" + id }

func (m *memContactRepo) Create(ctx context.Context, scope domain.BusinessScope, c *domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.BusinessID = scope.BusinessID()
	cp := *c
	m.contacts[contactKey(scope.BusinessID(), c.ID)] = &cp
	return nil
}

func (m *memContactRepo) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[contactKey(scope.BusinessID(), id)]
	if !ok {
		return nil, domain.NewNotFoundError("contact", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memContactRepo) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Contact
	for _, c := range m.contacts {
		if c.BusinessID == scope.BusinessID() {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memContactRepo) Update(ctx context.Context, scope domain.BusinessScope, c *domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := contactKey(scope.BusinessID(), c.ID)
	if _, ok := m.contacts[key]; !ok {
		return domain.NewNotFoundError("contact", c.ID)
	}
	cp := *c
	m.contacts[key] = &cp
	return nil
}

func (m *memContactRepo) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := contactKey(scope.BusinessID(), id)
	if _, ok := m.contacts[key]; !ok {
		return domain.NewNotFoundError("contact", id)
	}
	delete(m.contacts, key)
	return nil
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product // by business/id
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: map[string]*domain.Product{}}
}

func productKey(businessID, id string) string { return businessID + "/" + id }

func (m *memProductRepo) addStocked(businessID, id, name string, price float64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productKey(businessID, id)] = &domain.Product{
		ID: id, Name: name, Price: price, Stock: stock, BusinessID: businessID,
	}
}

func (m *memProductRepo) stock(businessID, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productKey(businessID, id)].Stock
}

func (m *memProductRepo) Create(ctx context.Context, scope domain.BusinessScope, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.BusinessID = scope.BusinessID()
	cp := *p
	m.products[productKey(scope.BusinessID(), p.ID)] = &cp
	return nil
}

func (m *memProductRepo) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productKey(scope.BusinessID(), id)]
	if !ok {
		return nil, domain.NewNotFoundError("product", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepo) List(ctx context.Context, scope domain.BusinessScope, f domain.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for _, p := range m.products {
		if p.BusinessID != scope.BusinessID() {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memProductRepo) Update(ctx context.Context, scope domain.BusinessScope, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := productKey(scope.BusinessID(), p.ID)
	existing, ok := m.products[key]
	if !ok {
		return domain.NewNotFoundError("product", p.ID)
	}
	cp := *p
	cp.Stock = existing.Stock // stock only moves through AdjustStockBatch
	m.products[key] = &cp
	return nil
}

func (m *memProductRepo) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := productKey(scope.BusinessID(), id)
	if _, ok := m.products[key]; !ok {
		return domain.NewNotFoundError("product", id)
	}
	delete(m.products, key)
	return nil
}

func (m *memProductRepo) AdjustStockBatch(ctx context.Context, scope domain.BusinessScope, deltas []domain.StockDelta) ([]domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range deltas {
		p, ok := m.products[productKey(scope.BusinessID(), d.ProductID)]
		if !ok {
			return nil, domain.NewNotFoundError("product", d.ProductID)
		}
		if p.Stock+d.Delta < 0 {
			return nil, &domain.InsufficientStockError{
				ProductID: d.ProductID,
				Available: p.Stock,
				Requested: -d.Delta,
			}
		}
	}

	levels := make([]domain.StockLevel, 0, len(deltas))
	for _, d := range deltas {
		p := m.products[productKey(scope.BusinessID(), d.ProductID)]
		p.Stock += d.Delta
		p.Version++
		levels = append(levels, domain.StockLevel{ProductID: d.ProductID, Stock: p.Stock})
	}
	return levels, nil
}

type memTransactionRepo struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction // by business/id
	failCreate   bool
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{transactions: map[string]*domain.Transaction{}}
}

func txnKey(businessID, id string) string { return businessID + "/" + id }

func (m *memTransactionRepo) Create(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return domain.NewPersistenceError("create transaction", false, errors.New("disk full"))
	}
	txn.BusinessID = scope.BusinessID()
	txn.CreatedAt = time.Now()
	cp := *txn
	cp.Items = append([]domain.LineItem(nil), txn.Items...)
	m.transactions[txnKey(scope.BusinessID(), txn.ID)] = &cp
	return nil
}

func (m *memTransactionRepo) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[txnKey(scope.BusinessID(), id)]
	if !ok {
		return nil, domain.NewNotFoundError("transaction", id)
	}
	cp := *txn
	cp.Items = append([]domain.LineItem(nil), txn.Items...)
	return &cp, nil
}

func (m *memTransactionRepo) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for _, txn := range m.transactions {
		if txn.BusinessID == scope.BusinessID() {
			cp := *txn
			cp.Items = append([]domain.LineItem(nil), txn.Items...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memTransactionRepo) Update(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := txnKey(scope.BusinessID(), txn.ID)
	if _, ok := m.transactions[key]; !ok {
		return domain.NewNotFoundError("transaction", txn.ID)
	}
	cp := *txn
	cp.Items = append([]domain.LineItem(nil), txn.Items...)
	m.transactions[key] = &cp
	return nil
}

func (m *memTransactionRepo) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := txnKey(scope.BusinessID(), id)
	if _, ok := m.transactions[key]; !ok {
		return domain.NewNotFoundError("transaction", id)
	}
	delete(m.transactions, key)
	return nil
}

func newTestLedger(products domain.ProductRepository) *inventory.Ledger {
	return inventory.NewLedger(products, nil, testLogger(), 3)
}
