package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rpggio/tasking/internal/auth"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type tenantKey struct{}

// TenantResolver resolves a tenant ID from a bearer token.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// TenantFromContext returns the tenant ID from context, if present.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(string)
	return tenantID, ok
}

// AuthMiddleware enforces bearer token authentication. The verified token
// stays in the context so backend calls are made on the caller's behalf.
func AuthMiddleware(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "", "missing bearer token")
				return
			}

			tenantID, err := resolver.ResolveTenant(r.Context(), token)
			if err != nil || tenantID == "" {
				unauthorized(w, "invalid_token", "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey{}, tenantID)
			ctx = auth.WithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized writes a 401 with an RFC 6750 challenge.
func unauthorized(w http.ResponseWriter, code, message string) {
	challenge := `Bearer realm="tasking"`
	if code != "" {
		challenge += fmt.Sprintf(`, error=%q`, code)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, message, http.StatusUnauthorized)
}

// DefaultTenantMiddleware assigns every request to one tenant when auth is disabled.
func DefaultTenantMiddleware(tenantID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), tenantKey{}, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
