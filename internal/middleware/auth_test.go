package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenMap map[string]*domain.User

func (m tokenMap) GetByToken(_ context.Context, token string) (*domain.User, error) {
	if token == "explode" {
		return nil, errors.New("db down")
	}
	if u, ok := m[token]; ok {
		return u, nil
	}
	return nil, domain.ErrInvalidToken
}

var (
	admin = &domain.User{ID: "admin-1", Name: "Admin", Role: domain.RoleAdmin}
	alice = &domain.User{ID: "user-1", Name: "Alice", Role: domain.RoleUser}
)

func whoAmI(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(user.ID))
}

func serve(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthenticate(t *testing.T) {
	auth := middleware.NewAuthMiddleware(tokenMap{"token-alice": alice})
	h := auth.Authenticate(http.HandlerFunc(whoAmI))

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"lookup failure", "Bearer explode", http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	t.Run("valid token", func(t *testing.T) {
		rec := serve(h, "bearer token-alice")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})
}

func TestRequireAdmin(t *testing.T) {
	auth := middleware.NewAuthMiddleware(tokenMap{"token-admin": admin, "token-alice": alice})
	h := auth.Authenticate(middleware.RequireAdmin(http.HandlerFunc(whoAmI)))

	rec := serve(h, "Bearer token-admin")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "Bearer token-alice")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_ACCESS", errorCode(t, rec))
}

func TestRequireAdmin_WithoutAuthenticate(t *testing.T) {
	rec := serve(middleware.RequireAdmin(http.HandlerFunc(whoAmI)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserFromContext(t *testing.T) {
	_, err := middleware.GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, middleware.ErrNoUser)

	user, err := middleware.GetUserFromContext(middleware.WithUser(context.Background(), alice))
	require.NoError(t, err)
	assert.Same(t, alice, user)
}
