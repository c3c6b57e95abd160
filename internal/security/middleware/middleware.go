package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/reliability/circuitbreaker"
	"github.com/yourorg/bizledger/internal/security/audit"
	"github.com/yourorg/bizledger/internal/security/auth"
	"github.com/yourorg/bizledger/internal/security/ratelimit"
)

type ScopeContextKey struct{}
type ClaimsContextKey struct{}

// TokenRevoker checks whether a token id has been denylisted by logout.
type TokenRevoker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// publicPath reports whether a request path skips authentication.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics",
		"/api/v1/auth/register", "/api/v1/auth/login":
		return true
	}
	return false
}

// JWTMiddleware authenticates requests and places the verified claims and the
// derived BusinessScope in the request context. Revocation lookups go through
// the circuit breaker and fail open: a broken denylist store must not take the
// API down, it only widens the logout window.
func JWTMiddleware(tm *auth.TokenManager, revoker TokenRevoker, breaker *circuitbreaker.CircuitBreaker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				t, err := auth.ExtractToken(authHeader)
				if err != nil {
					http.Error(w, `{"success":false,"message":"invalid authorization header"}`, http.StatusUnauthorized)
					return
				}
				tokenString = t
			} else if strings.HasPrefix(r.URL.Path, "/ws/") {
				// Browsers cannot set headers on websocket dials.
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				http.Error(w, `{"success":false,"message":"missing auth token"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"success":false,"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			if revoked := checkRevoked(r.Context(), revoker, breaker, log, claims.ID); revoked {
				http.Error(w, `{"success":false,"message":"token revoked"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, ScopeContextKey{}, domain.NewBusinessScope(claims.BusinessID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func checkRevoked(ctx context.Context, revoker TokenRevoker, breaker *circuitbreaker.CircuitBreaker, log *slog.Logger, tokenID string) bool {
	if revoker == nil || tokenID == "" {
		return false
	}
	if breaker != nil && !breaker.AllowRequest() {
		return false
	}
	revoked, err := revoker.IsTokenRevoked(ctx, tokenID)
	if err != nil {
		if breaker != nil {
			breaker.RecordFailure()
		}
		log.Warn("token revocation check failed, failing open", slog.String("error", err.Error()))
		return false
	}
	if breaker != nil {
		breaker.RecordSuccess()
	}
	return revoked
}

// RateLimitMiddleware limits requests per authenticated business.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			businessID := GetScopeFromContext(r.Context()).BusinessID()
			if !limiter.Allow(businessID) {
				log.Warn("rate limit exceeded", slog.String("business_id", businessID))
				http.Error(w, `{"success":false,"message":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every mutating API call before it is handled.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				if strings.HasPrefix(r.URL.Path, "/api/") && !publicPath(r.URL.Path) {
					businessID := ""
					userID := ""
					if c := GetClaimsFromContext(r.Context()); c != nil {
						businessID = c.BusinessID
						userID = c.UserID
					}
					auditLog.LogAction(r.Context(), businessID, userID,
						strings.ToLower(r.Method), r.URL.Path, resourceID(r.URL.Path), "initiated", "")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resourceID extracts the id segment from collection routes like
// /api/v1/products/{id}/stock. This middleware runs before mux matching, so
// pattern values are not available and the path is parsed directly.
func resourceID(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 4 || segments[2] == "auth" {
		return ""
	}
	return segments[3]
}

// GetScopeFromContext returns the business scope placed by JWTMiddleware. The
// zero scope is returned for unauthenticated requests.
func GetScopeFromContext(ctx context.Context) domain.BusinessScope {
	if s, ok := ctx.Value(ScopeContextKey{}).(domain.BusinessScope); ok {
		return s
	}
	return domain.BusinessScope{}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}
