package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/handler"
	"github.com/yourorg/bizledger/internal/inventory"
	"github.com/yourorg/bizledger/internal/security/audit"
	"github.com/yourorg/bizledger/internal/security/auth"
	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/security/ratelimit"
	"github.com/yourorg/bizledger/internal/service"
	"github.com/yourorg/bizledger/internal/stockfeed"
)

// TestServerHelper wires the full API over in-memory storage, so requests
// exercise the same routing, middleware, and handlers as production.
type TestServerHelper struct {
	Server  *httptest.Server
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
	Hub     *stockfeed.Hub
}

// memStore is a minimal in-memory backing for all four repositories.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	contacts     map[string]*domain.Contact
	products     map[string]*domain.Product
	transactions map[string]*domain.Transaction
	revoked      map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*domain.User{},
		contacts:     map[string]*domain.Contact{},
		products:     map[string]*domain.Product{},
		transactions: map[string]*domain.Transaction{},
		revoked:      map[string]bool{},
	}
}

func key(businessID, id string) string { return businessID + "/" + id }

// UserRepository

func (s *memStore) Create(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return domain.NewValidationError("email", "Email or username already exists")
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("user", email)
}

func (s *memStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("user", username)
}

func (s *memStore) Update(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return domain.NewNotFoundError("user", u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// Token revocation (stands in for Redis)

func (s *memStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = true
	return nil
}

func (s *memStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[tokenID], nil
}

// contactRepo adapts memStore to domain.ContactRepository.
type contactRepo struct{ s *memStore }

func (r contactRepo) Create(ctx context.Context, scope domain.BusinessScope, c *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.BusinessID = scope.BusinessID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.s.contacts[key(scope.BusinessID(), c.ID)] = &cp
	return nil
}

func (r contactRepo) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[key(scope.BusinessID(), id)]
	if !ok {
		return nil, domain.NewNotFoundError("contact", id)
	}
	cp := *c
	return &cp, nil
}

func (r contactRepo) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Contact
	for _, c := range r.s.contacts {
		if c.BusinessID == scope.BusinessID() {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r contactRepo) Update(ctx context.Context, scope domain.BusinessScope, c *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(scope.BusinessID(), c.ID)
	if _, ok := r.s.contacts[k]; !ok {
		return domain.NewNotFoundError("contact", c.ID)
	}
	c.UpdatedAt = time.Now()
	cp := *c
	r.s.contacts[k] = &cp
	return nil
}

func (r contactRepo) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(scope.BusinessID(), id)
	if _, ok := r.s.contacts[k]; !ok {
		return domain.NewNotFoundError("contact", id)
	}
	delete(r.s.contacts, k)
	return nil
}

// productRepo adapts memStore to domain.ProductRepository with the same
// all-or-nothing batch contract as the Postgres implementation.
type productRepo struct{ s *memStore }

func (r productRepo) Create(ctx context.Context, scope domain.BusinessScope, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.BusinessID = scope.BusinessID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.products[key(scope.BusinessID(), p.ID)] = &cp
	return nil
}

func (r productRepo) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[key(scope.BusinessID(), id)]
	if !ok {
		return nil, domain.NewNotFoundError("product", id)
	}
	cp := *p
	return &cp, nil
}

func (r productRepo) List(ctx context.Context, scope domain.BusinessScope, f domain.ProductFilter) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Product
	for _, p := range r.s.products {
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

func (r productRepo) Update(ctx context.Context, scope domain.BusinessScope, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(scope.BusinessID(), p.ID)
	existing, ok := r.s.products[k]
	if !ok {
		return domain.NewNotFoundError("product", p.ID)
	}
	p.UpdatedAt = time.Now()
	cp := *p
	cp.Stock = existing.Stock
	r.s.products[k] = &cp
	return nil
}

func (r productRepo) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(scope.BusinessID(), id)
	if _, ok := r.s.products[k]; !ok {
		return domain.NewNotFoundError("product", id)
	}
	delete(r.s.products, k)
	return nil
}

func (r productRepo) AdjustStockBatch(ctx context.Context, scope domain.BusinessScope, deltas []domain.StockDelta) ([]domain.StockLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range deltas {
		p, ok := r.s.products[key(scope.BusinessID(), d.ProductID)]
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
		p := r.s.products[key(scope.BusinessID(), d.ProductID)]
		p.Stock += d.Delta
		p.Version++
		levels = append(levels, domain.StockLevel{ProductID: d.ProductID, Stock: p.Stock})
	}
	return levels, nil
}

// transactionRepo adapts memStore to domain.TransactionRepository.
type transactionRepo struct{ s *memStore }

func (r transactionRepo) Create(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn.BusinessID = scope.BusinessID()
	txn.CreatedAt = time.Now()
	cp := *txn
	cp.Items = append([]domain.LineItem(nil), txn.Items...)
	r.s.transactions[key(scope.BusinessID(), txn.ID)] = &cp
	return nil
}

func (r transactionRepo) GetByID(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[key(scope.BusinessID(), id)]
	if !ok {
		return nil, domain.NewNotFoundError("transaction", id)
	}
	cp := *txn
	cp.Items = append([]domain.LineItem(nil), txn.Items...)
	return &cp, nil
}

func (r transactionRepo) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Transaction
	for _, txn := range r.s.transactions {
		if txn.BusinessID == scope.BusinessID() {
			cp := *txn
			cp.Items = append([]domain.LineItem(nil), txn.Items...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r transactionRepo) Update(ctx context.Context, scope domain.BusinessScope, txn *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(scope.BusinessID(), txn.ID)
	if _, ok := r.s.transactions[k]; !ok {
		return domain.NewNotFoundError("transaction", txn.ID)
	}
	cp := *txn
	cp.Items = append([]domain.LineItem(nil), txn.Items...)
	r.s.transactions[k] = &cp
	return nil
}

func (r transactionRepo) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(scope.BusinessID(), id)
	if _, ok := r.s.transactions[k]; !ok {
		return domain.NewNotFoundError("transaction", id)
	}
	delete(r.s.transactions, k)
	return nil
}

// NewTestServer builds a fully wired API server over in-memory storage.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()

	hub := stockfeed.NewHub()
	ledger := inventory.NewLedger(productRepo{store}, hub, log, 3)

	tokenManager := auth.NewTokenManager("integration-test-secret", "bizledger")
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	auditLogger := audit.NewLogger(log)

	authService := service.NewAuthService(store, tokenManager, store, time.Hour, log)
	contactService := service.NewContactService(contactRepo{store}, log)
	productService := service.NewProductService(productRepo{store}, ledger, log)
	transactionService := service.NewTransactionService(
		transactionRepo{store}, contactRepo{store}, productRepo{store}, ledger, auditLogger, log)

	authHandler := handler.NewAuthHandler(authService, log)
	contactHandler := handler.NewContactHandler(contactService, log)
	productHandler := handler.NewProductHandler(productService, log)
	transactionHandler := handler.NewTransactionHandler(transactionService, log)
	stockFeedHandler := handler.NewStockFeedHandler(hub, log, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/v1/contacts", contactHandler.Create)
	mux.HandleFunc("GET /api/v1/contacts", contactHandler.List)
	mux.HandleFunc("GET /api/v1/contacts/{id}", contactHandler.Get)
	mux.HandleFunc("PUT /api/v1/contacts/{id}", contactHandler.Update)
	mux.HandleFunc("DELETE /api/v1/contacts/{id}", contactHandler.Delete)
	mux.HandleFunc("POST /api/v1/products", productHandler.Create)
	mux.HandleFunc("GET /api/v1/products", productHandler.List)
	mux.HandleFunc("GET /api/v1/products/{id}", productHandler.Get)
	mux.HandleFunc("PUT /api/v1/products/{id}", productHandler.Update)
	mux.HandleFunc("DELETE /api/v1/products/{id}", productHandler.Delete)
	mux.HandleFunc("PATCH /api/v1/products/{id}/stock", productHandler.AdjustStock)
	mux.HandleFunc("POST /api/v1/transactions", transactionHandler.Create)
	mux.HandleFunc("GET /api/v1/transactions", transactionHandler.List)
	mux.HandleFunc("GET /api/v1/transactions/{id}", transactionHandler.Get)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", transactionHandler.Update)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", transactionHandler.Delete)
	mux.Handle("GET /ws/inventory", stockFeedHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	root := middleware.JWTMiddleware(tokenManager, store, nil, log)(
		middleware.RateLimitMiddleware(limiter, log)(
			middleware.AuditMiddleware(auditLogger)(mux),
		),
	)

	server := httptest.NewServer(root)
	t.Cleanup(func() {
		server.Close()
		limiter.Stop()
	})

	return &TestServerHelper{Server: server, Logger: log, Limiter: limiter, Hub: hub}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// DoJSON sends a JSON request with optional bearer token and decodes the
// envelope response.
func (h *TestServerHelper) DoJSON(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.URL()+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

// RegisterAccount registers a fresh account and returns its token and user id.
func (h *TestServerHelper) RegisterAccount(t *testing.T, username string) (token, userID string) {
	t.Helper()
	status, body := h.DoJSON(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"name":         "Test Owner",
		"email":        username + "@example.test",
		"username":     username,
		"password":     "a-strong-password",
		"businessName": "Test Business " + username,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", username, status, body)
	}
	data := body["data"].(map[string]any)
	token = data["token"].(string)
	userID = data["user"].(map[string]any)["id"].(string)
	return token, userID
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, got, expected int) {
	t.Helper()
	if got != expected {
		t.Errorf("Expected status %d, got %d", expected, got)
	}
}
