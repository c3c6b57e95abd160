package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/service"
)

// ProductRequest represents the create/update payload for a product
type ProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// AdjustStockRequest represents a stock adjustment
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

// AdjustStockResponse carries the post-adjustment stock level
type AdjustStockResponse struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

// ProductHandler handles product CRUD and stock adjustment endpoints
type ProductHandler struct {
	productService *service.ProductService
	logger         *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, logger: logger}
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.productService.Create(r.Context(), middleware.GetScopeFromContext(r.Context()), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductResponse(product))
}

// List handles GET /api/v1/products?q=&category=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	products, err := h.productService.List(r.Context(), middleware.GetScopeFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(product))
}

// Update handles PUT /api/v1/products/{id}. Stock changes are rejected here;
// the adjustment endpoint is the only stock path.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.productService.Update(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id"), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, http.StatusOK, "Product deleted")
}

// AdjustStock handles PATCH /api/v1/products/{id}/stock
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	stock, err := h.productService.AdjustStock(r.Context(), middleware.GetScopeFromContext(r.Context()), id, req.Delta)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, AdjustStockResponse{ProductID: id, Stock: stock})
}
