package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the rest of the fleet uses.
const bcryptCost = 12

// TokenRevoker denylists tokens until their natural expiry.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// AuthService handles registration, login, and logout.
type AuthService struct {
	users    domain.UserRepository
	tokens   *auth.TokenManager
	revoker  TokenRevoker
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	tokens *auth.TokenManager,
	revoker TokenRevoker,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		revoker:  revoker,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name         string
	Email        string
	Username     string
	Password     string
	BusinessName string
}

// UserInfo is the client-visible slice of a user record.
type UserInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	User  UserInfo `json:"user"`
	Token string   `json:"token"`
}

func validateRegisterInput(in RegisterInput) domain.ValidationErrors {
	var errs domain.ValidationErrors
	if len(strings.TrimSpace(in.Name)) < 2 {
		errs = append(errs, domain.NewValidationError("name", "Name must be at least 2 characters long"))
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		errs = append(errs, domain.NewValidationError("email", "Valid email is required"))
	}
	if len(strings.TrimSpace(in.Username)) < 3 {
		errs = append(errs, domain.NewValidationError("username", "Username must be at least 3 characters long"))
	}
	if len(in.Password) < 8 {
		errs = append(errs, domain.NewValidationError("password", "Password must be at least 8 characters long"))
	}
	if len(strings.TrimSpace(in.BusinessName)) < 2 {
		errs = append(errs, domain.NewValidationError("businessName", "Business name must be at least 2 characters long"))
	}
	return errs
}

// Register creates a new user account and returns a fresh token. The new
// user's id is the business identity everything else is owned under.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if errs := validateRegisterInput(in); len(errs) > 0 {
		return nil, errs
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.NewValidationError("email", "Email or username already exists")
	}
	if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, domain.NewValidationError("username", "Email or username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		BusinessName: strings.TrimSpace(in.BusinessName),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if domain.IsValidation(err) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.ID, user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{
		User:  UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Username: user.Username},
		Token: token,
	}, nil
}

// Login authenticates by email or username (case-insensitive) and returns a
// token. Failures are indistinguishable to prevent account enumeration.
func (s *AuthService) Login(ctx context.Context, emailOrUsername, password string) (*AuthResult, error) {
	if emailOrUsername == "" || password == "" {
		return nil, domain.NewValidationError("credentials", "Email/username and password are required")
	}

	normalized := strings.ToLower(strings.TrimSpace(emailOrUsername))
	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		user, err = s.users.GetByUsername(ctx, normalized)
	}
	if err != nil {
		s.logger.Info("login attempt for unknown account", slog.String("login", normalized))
		return nil, domain.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		return nil, domain.ErrUnauthorized
	}

	token, err := s.tokens.GenerateToken(user.ID, user.ID, user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{
		User:  UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Username: user.Username},
		Token: token,
	}, nil
}

// Logout denylists the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return domain.ErrUnauthorized
	}
	if s.revoker == nil || claims.ID == "" {
		return nil
	}

	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("failed to revoke token",
				slog.String("user_id", claims.UserID),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}
