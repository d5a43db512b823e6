package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func TestAuth_ValidToken_AuthorizationHeader(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	token, err := jwtService.GenerateToken(7, 3, "test@example.com", domain.RoleUser)
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, uint(7), GetUserID(r.Context()))
		assert.Equal(t, uint(3), GetOrganizationID(r.Context()))
		assert.Equal(t, "test@example.com", GetUserEmail(r.Context()))
		assert.Equal(t, domain.RoleUser, GetUserRole(r.Context()))
		assert.Equal(t, domain.Identity{UserID: 7, OrganizationID: 3, Role: domain.RoleUser}, Identity(r.Context()))
		okHandler(w, r)
	}))

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_ValidToken_XAuthTokenHeader(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	token, err := jwtService.GenerateToken(1, 1, "test@example.com", domain.RoleViewer)
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set("X-Auth-Token", token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejected(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	expired, err := auth.NewJWTService("test-secret", -time.Hour).GenerateToken(1, 1, "a@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	foreign, err := auth.NewJWTService("other-secret", time.Hour).GenerateToken(1, 1, "a@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	valid, err := jwtService.GenerateToken(1, 1, "a@example.com", domain.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"no token", "", ""},
		{"garbage token", "Authorization", "Bearer not-a-jwt"},
		{"expired token", "Authorization", "Bearer " + expired},
		{"different secret", "Authorization", "Bearer " + foreign},
		{"cookie is not accepted", "Cookie", "token=" + valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		})
	}
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Zero(t, GetUserID(ctx))
	assert.Zero(t, GetOrganizationID(ctx))
	assert.Empty(t, GetUserEmail(ctx))
	assert.Empty(t, GetUserRole(ctx))
	assert.ErrorIs(t, Identity(ctx).Require(), domain.ErrUnauthenticated)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"has role", domain.RoleAdmin, []string{domain.RoleAdmin}, http.StatusOK},
		{"one of several", domain.RoleUser, []string{domain.RoleAdmin, domain.RoleUser}, http.StatusOK},
		{"viewer blocked from writes", domain.RoleViewer, []string{domain.RoleAdmin, domain.RoleUser}, http.StatusForbidden},
		{"no role in context", "", []string{domain.RoleAdmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.allowed...)(http.HandlerFunc(okHandler))

			req := httptest.NewRequest("POST", "/api/v1/tasks", nil)
			if tt.role != "" {
				req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, tt.role))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusForbidden {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}
