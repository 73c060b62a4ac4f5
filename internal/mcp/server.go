package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Services contains all domain services needed by MCP.
type Services struct {
	Workspaces WorkspaceService
	Lookups    LookupService
	Activity   ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      TenantResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tasking",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio mode: always disable auth (local only)
	if cfg.TransportMode == "stdio" || !cfg.AuthEnabled {
		server.AddReceivingMiddleware(noAuthMiddleware("default"))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}
	server.AddReceivingMiddleware(workspaceMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	handler := NewHandler(cfg.Services.Workspaces, cfg.Services.Lookups, cfg.Services.Activity)
	registerTools(server, handler)

	return server
}

func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, tool := range handler.Tools() {
		name := tool.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := handler.Handle(ctx, getTenantID(ctx), getWorkspaceID(ctx), name, args)
			if err != nil {
				return toolError(err), nil
			}
			return toolResult(result)
		})
	}
}

func toolResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func toolError(err error) *sdkmcp.CallToolResult {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = &APIError{Code: "INTERNAL", Message: err.Error()}
	}
	data, marshalErr := json.Marshal(apiErr)
	if marshalErr != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
