package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/service"
)

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	BusinessName string `json:"businessName"`
}

// LoginRequest represents a login attempt by email or username
type LoginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"` // Accepted as an alias for login
	Password string `json:"password"`
}

// AuthHandler handles registration, login, and logout
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Username:     req.Username,
		Password:     req.Password,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	login := req.Login
	if login == "" {
		login = req.Email
	}

	result, err := h.authService.Login(r.Context(), login, req.Password)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Logout handles GET /api/v1/auth/logout. The presented token is denylisted
// until its natural expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		respondErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.authService.Logout(r.Context(), claims); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondMessage(w, http.StatusOK, "Logged out")
}
