package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/policy"
)

type contextKey string

const (
	// ContextKeyUser is the key for storing the authenticated user in request context.
	ContextKeyUser contextKey = "user"
)

// ErrNoUser is returned when the request context carries no authenticated user.
var ErrNoUser = errors.New("no authenticated user in context")

// TokenResolver resolves a bearer token to a user.
type TokenResolver interface {
	GetByToken(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware handles Bearer token authentication.
type AuthMiddleware struct {
	users TokenResolver
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(users TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{
		users: users,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Authenticate validates the Bearer token and adds the user to request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "MISSING_TOKEN", "missing authorization header")
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid authorization header format")
			return
		}

		user, err := m.users.GetByToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
				return
			}
			slog.Error("token lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin rejects authenticated users who may not mutate tasks.
// It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := GetUserFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
			return
		}

		if err := policy.AuthorizeMutate(user.Role); err != nil {
			writeError(w, http.StatusForbidden, "INSUFFICIENT_ACCESS", domain.ErrAdminOnly.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(ctx context.Context) (*domain.User, error) {
	user, ok := ctx.Value(ContextKeyUser).(*domain.User)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// writeError mirrors the API error body without importing the handler packages.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]map[string]string{"error": {"code": code, "message": message}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
