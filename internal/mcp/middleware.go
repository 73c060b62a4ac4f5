package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tasking/internal/auth"
)

type contextKey int

const (
	tenantIDKey contextKey = iota
	workspaceIDKey
)

// WorkspaceHeader carries the workspace a request operates on.
const WorkspaceHeader = "X-Workspace-Id"

// ErrUnauthorized is returned for tool calls without a valid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

func getTenantID(ctx context.Context) string {
	v, _ := ctx.Value(tenantIDKey).(string)
	return v
}

func getWorkspaceID(ctx context.Context) string {
	v, _ := ctx.Value(workspaceIDKey).(string)
	return v
}

// TenantResolver resolves a tenant ID from a bearer token.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// isProtocolMethod reports whether method is session plumbing that runs
// before a client can present credentials.
func isProtocolMethod(method string) bool {
	return method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/")
}

// authMiddleware resolves the tenant from the caller's bearer token and keeps
// the token in the context so backend calls act as the caller.
func authMiddleware(resolver TenantResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if isProtocolMethod(method) {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", ErrUnauthorized)
			}
			token, ok := auth.BearerToken(extra.Header.Get("Authorization"))
			if !ok {
				return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
			}

			tenantID, err := resolver.ResolveTenant(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
			}
			if tenantID == "" {
				return nil, fmt.Errorf("%w: token carries no tenant", ErrUnauthorized)
			}

			ctx = context.WithValue(ctx, tenantIDKey, tenantID)
			ctx = auth.WithToken(ctx, token)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware binds every request to one tenant when auth is disabled.
func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(context.WithValue(ctx, tenantIDKey, defaultTenant), method, req)
		}
	}
}

// metaWorkspaceID reads the workspace id a stdio client put in _meta.
func metaWorkspaceID(meta map[string]any) string {
	for _, key := range []string{"workspace_id", "workspaceId"} {
		if id, ok := meta[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// requestWorkspaceID reads the workspace id from the HTTP header, falling
// back to request metadata.
func requestWorkspaceID(req sdkmcp.Request) (workspaceID string) {
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id := extra.Header.Get(WorkspaceHeader); id != "" {
			return id
		}
	}

	params := req.GetParams()
	if params == nil {
		return ""
	}
	// GetMeta panics when params wraps a nil pointer, as on "initialized".
	defer func() {
		if recover() != nil {
			workspaceID = ""
		}
	}()
	return metaWorkspaceID(params.GetMeta())
}

func workspaceMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if id := requestWorkspaceID(req); id != "" {
				ctx = context.WithValue(ctx, workspaceIDKey, id)
			}
			return next(ctx, method, req)
		}
	}
}
