package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/security/auth"
)

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: map[string]time.Duration{}}
}

func (m *memRevoker) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = ttl
	return nil
}

func newAuthFixture() (*AuthService, *memUserRepo, *memRevoker, *auth.TokenManager) {
	users := newMemUserRepo()
	revoker := newMemRevoker()
	tokens := auth.NewTokenManager("test-secret", "bizledger")
	svc := NewAuthService(users, tokens, revoker, time.Hour, testLogger())
	return svc, users, revoker, tokens
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:         "Ada Lovelace",
		Email:        "Ada@Example.com",
		Username:     "AdaL",
		Password:     "correct horse",
		BusinessName: "Analytical Engines",
	}
}

func TestRegisterCreatesUserAndToken(t *testing.T) {
	svc, users, _, tokens := newAuthFixture()

	result, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.User.Email != "ada@example.com" || result.User.Username != "adal" {
		t.Fatalf("email and username should be lowercased, got %+v", result.User)
	}
	if result.Token == "" {
		t.Fatal("expected a token on registration")
	}

	claims, err := tokens.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("token should validate: %v", err)
	}
	if claims.BusinessID != result.User.ID {
		t.Fatalf("the user id is the business identity, got %q vs %q", claims.BusinessID, result.User.ID)
	}

	stored, err := users.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.PasswordHash == "correct horse" {
		t.Fatal("password must be hashed, not stored in the clear")
	}
}

func TestRegisterCollectsAllFieldErrors(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "A",
		Email:    "not-an-email",
		Username: "ab",
		Password: "short",
	})
	var errs domain.ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(errs) != 5 {
		t.Fatalf("expected all 5 field failures reported together, got %v", errs.Messages())
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	dup := validRegistration()
	dup.Username = "different"
	if _, err := svc.Register(ctx, dup); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate email, got %v", err)
	}

	dup = validRegistration()
	dup.Email = "other@example.com"
	if _, err := svc.Register(ctx, dup); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate username, got %v", err)
	}
}

func TestLoginByEmailOrUsername(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, login := range []string{"ada@example.com", "ADA@example.COM", "adal", "AdaL"} {
		result, err := svc.Login(ctx, login, "correct horse")
		if err != nil {
			t.Fatalf("login as %q: %v", login, err)
		}
		if result.Token == "" {
			t.Fatalf("login as %q returned no token", login)
		}
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "ada@example.com", "wrong")
	_, unknownUser := svc.Login(ctx, "nobody@example.com", "correct horse")
	if wrongPassword != domain.ErrUnauthorized || unknownUser != domain.ErrUnauthorized {
		t.Fatalf("both failures must be the same unauthorized error, got %v and %v", wrongPassword, unknownUser)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, revoker, tokens := newAuthFixture()
	ctx := context.Background()

	result, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := tokens.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoker.mu.Lock()
	ttl, ok := revoker.revoked[claims.ID]
	revoker.mu.Unlock()
	if !ok {
		t.Fatal("logout must denylist the token id")
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("denylist ttl should cover the token's remaining life, got %v", ttl)
	}
}
