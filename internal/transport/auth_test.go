package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpggio/tasking/internal/auth"
	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToTenant map[string]string
	err           error
}

func (r *testResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	tenant, ok := r.tokenToTenant[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return tenant, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &testResolver{tokenToTenant: map[string]string{"token": "tenant1"}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "tenant1", tenantID)
		token, ok := auth.TokenFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "token", token)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	resolver := &testResolver{err: errors.New("invalid")}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, `Bearer realm="tasking", error="invalid_token"`, rec.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	resolver := &testResolver{tokenToTenant: map[string]string{"token": "tenant1"}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, `Bearer realm="tasking"`, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_JWT(t *testing.T) {
	validator, err := auth.NewHMACValidator([]byte("secret"), "https://idp.example")
	require.NoError(t, err)

	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, _ := TenantFromContext(r.Context())
		_, _ = w.Write([]byte(tenantID))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://idp.example",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TenantID: "tenant-7",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+signed)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tenant-7", rec.Body.String())
}

func TestDefaultTenantMiddleware(t *testing.T) {
	handler := DefaultTenantMiddleware("default")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "default", tenantID)
		_, ok = auth.TokenFromContext(r.Context())
		require.False(t, ok)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
