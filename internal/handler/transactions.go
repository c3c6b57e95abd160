package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/service"
)

// LineItemRequest represents one line of a transaction request
type LineItemRequest struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Price     *float64 `json:"price,omitempty"`
}

// TransactionRequest represents the create payload for a transaction
type TransactionRequest struct {
	Type       string            `json:"type"`
	CustomerID string            `json:"customerId,omitempty"`
	VendorID   string            `json:"vendorId,omitempty"`
	Items      []LineItemRequest `json:"items"`
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
}

// TransactionUpdateRequest represents the editable fields of a committed
// transaction
type TransactionUpdateRequest struct {
	CustomerID string     `json:"customerId,omitempty"`
	VendorID   string     `json:"vendorId,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// LineItemResponse represents one line of a transaction in API responses
type LineItemResponse struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
}

// CounterpartyResponse identifies the customer or vendor of a transaction
type CounterpartyResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID           string                `json:"id"`
	Type         string                `json:"type"`
	Counterparty *CounterpartyResponse `json:"counterparty,omitempty"`
	Items        []LineItemResponse    `json:"items"`
	TotalAmount  float64               `json:"totalAmount"`
	Timestamp    time.Time             `json:"timestamp"`
	CreatedAt    time.Time             `json:"createdAt"`
}

func toTransactionResponse(v *service.TransactionView) TransactionResponse {
	txn := v.Transaction
	resp := TransactionResponse{
		ID:          txn.ID,
		Type:        string(txn.Type),
		TotalAmount: txn.TotalAmount,
		Timestamp:   txn.Timestamp,
		CreatedAt:   txn.CreatedAt,
		Items:       make([]LineItemResponse, len(txn.Items)),
	}
	if v.Counterparty != nil {
		resp.Counterparty = &CounterpartyResponse{
			ID: v.Counterparty.ID, Name: v.Counterparty.Name, Email: v.Counterparty.Email,
		}
	} else if id := txn.CounterpartyID(); id != "" {
		resp.Counterparty = &CounterpartyResponse{ID: id}
	}
	for i, item := range txn.Items {
		line := LineItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Price * float64(item.Quantity),
		}
		if p := v.Products[item.ProductID]; p != nil {
			line.ProductName = p.Name
		}
		resp.Items[i] = line
	}
	return resp
}

// TransactionHandler handles transaction endpoints
type TransactionHandler struct {
	transactionService *service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService *service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, logger: logger}
}

func userID(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

// Create handles POST /api/v1/transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	counterparty := req.CustomerID
	if counterparty == "" {
		counterparty = req.VendorID
	}
	items := make([]service.LineItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.LineItemInput{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price}
	}

	scope := middleware.GetScopeFromContext(r.Context())
	txn, err := h.transactionService.Create(r.Context(), scope, userID(r), service.TransactionInput{
		Type:           req.Type,
		CounterpartyID: counterparty,
		Items:          items,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	view, err := h.transactionService.Get(r.Context(), scope, txn.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionResponse(view))
}

// List handles GET /api/v1/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.transactionService.List(r.Context(), middleware.GetScopeFromContext(r.Context()))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]TransactionResponse, len(views))
	for i, v := range views {
		out[i] = toTransactionResponse(v)
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.transactionService.Get(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(view))
}

// Update handles PUT /api/v1/transactions/{id}. Only the counterparty and
// timestamp can change; line items are frozen once committed.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req TransactionUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	counterparty := req.CustomerID
	if counterparty == "" {
		counterparty = req.VendorID
	}

	scope := middleware.GetScopeFromContext(r.Context())
	txn, err := h.transactionService.Update(r.Context(), scope, r.PathValue("id"), service.UpdateInput{
		CounterpartyID: counterparty,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	view, err := h.transactionService.Get(r.Context(), scope, txn.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(view))
}

// Delete handles DELETE /api/v1/transactions/{id}. Stock stays where the
// transaction left it.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope := middleware.GetScopeFromContext(r.Context())
	if err := h.transactionService.Delete(r.Context(), scope, userID(r), r.PathValue("id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, http.StatusOK, "Transaction deleted")
}
