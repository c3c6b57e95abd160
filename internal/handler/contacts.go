package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/service"
)

// ContactRequest represents the create/update payload for a contact
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	Type    string `json:"type"`
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toContactResponse(c *domain.Contact) ContactResponse {
	return ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Type:      string(c.Type),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ContactHandler handles contact CRUD endpoints
type ContactHandler struct {
	contactService *service.ContactService
	logger         *slog.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, logger: logger}
}

// Create handles POST /api/v1/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	contact, err := h.contactService.Create(r.Context(), middleware.GetScopeFromContext(r.Context()), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Type:    req.Type,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toContactResponse(contact))
}

// List handles GET /api/v1/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactService.List(r.Context(), middleware.GetScopeFromContext(r.Context()))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]ContactResponse, len(contacts))
	for i, c := range contacts {
		out[i] = toContactResponse(c)
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contactService.Get(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toContactResponse(contact))
}

// Update handles PUT /api/v1/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	contact, err := h.contactService.Update(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id"), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Type:    req.Type,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toContactResponse(contact))
}

// Delete handles DELETE /api/v1/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contactService.Delete(r.Context(), middleware.GetScopeFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, http.StatusOK, "Contact deleted")
}
