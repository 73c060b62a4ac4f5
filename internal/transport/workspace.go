package transport

import (
	"context"
	"net/http"
)

// WorkspaceHeader carries the workspace a request operates on.
const WorkspaceHeader = "X-Workspace-Id"

type workspaceKey struct{}

// WorkspaceIDFromContext returns the workspace ID from context, if present.
func WorkspaceIDFromContext(ctx context.Context) (string, bool) {
	workspaceID, ok := ctx.Value(workspaceKey{}).(string)
	return workspaceID, ok
}

// WorkspaceMiddleware extracts X-Workspace-Id and stores it in context.
func WorkspaceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID := r.Header.Get(WorkspaceHeader)
		if workspaceID != "" {
			ctx := context.WithValue(r.Context(), workspaceKey{}, workspaceID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}
