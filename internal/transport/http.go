package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/tasking/internal/mcp"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, tenantID, workspaceID, method string, params json.RawMessage) (any, error)
}

// APIError is an error that carries a stable code for clients.
type APIError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

// maxRequestBytes bounds a JSON-RPC body; build_rows carries whole record stores.
const maxRequestBytes = 8 << 20

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
}

// NewServer creates an HTTP server router with middleware. tenantMiddleware
// sets the tenant (AuthMiddleware or DefaultTenantMiddleware); extra
// middleware runs after it.
func NewServer(handler MCPHandler, tenantMiddleware func(http.Handler) http.Handler, extra ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	srv := &Server{handler: handler}
	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if tenantMiddleware != nil {
			r.Use(tenantMiddleware)
		}
		r.Use(extra...)
		r.Use(WorkspaceMiddleware)
		r.Post("/rpc", srv.handleRPC)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		code := ErrInvalidReq
		if errors.Is(err, ErrParse) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	tenantID, ok := TenantFromContext(r.Context())
	if !ok || tenantID == "" {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	workspaceID, _ := WorkspaceIDFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), tenantID, workspaceID, req.Method, req.Params)
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var apiErr APIError
		if errors.As(err, &apiErr) {
			WriteError(w, req.ID, ErrorCodeFor(apiErr.CodeValue()), apiErr.MessageValue(), map[string]any{
				"code":          apiErr.CodeValue(),
				"details":       apiErr.DetailsValue(),
				"recovery_hint": apiErr.RecoveryHintValue(),
			})
			return
		}
		if errors.Is(err, mcp.ErrUnknownMethod) {
			WriteError(w, req.ID, ErrMethodNotFound, err.Error(), nil)
			return
		}
		WriteError(w, req.ID, ErrInternal, err.Error(), nil)
		return
	}

	WriteResult(w, req.ID, result)
}
