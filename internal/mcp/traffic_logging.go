package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxLoggedPayload = 4096

// trafficLoggingMiddleware logs every request and response at debug level.
// Failed calls are logged at warn level even when debug is off.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil {
				return next(ctx, method, req)
			}
			debug := logger.Enabled(ctx, slog.LevelDebug)

			params := safeParams(req)
			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", safeSessionID(req),
				"tenant_id", getTenantID(ctx),
				"workspace_id", getWorkspaceID(ctx),
			}
			if method == "tools/call" {
				attrs = append(attrs, "tool", toolName(params))
			}
			if debug {
				logger.Debug("mcp traffic", append(attrs, "stage", "request", "params", formatPayload(params))...)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs = append(attrs, "stage", "response", "duration", time.Since(start))
			switch {
			case err != nil:
				logger.Warn("mcp call failed", append(attrs, "error", err)...)
			case debug:
				logger.Debug("mcp traffic", append(attrs, "result", formatPayload(result))...)
			}
			return result, err
		}
	}
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

// toolName reads the tool name out of tools/call params.
func toolName(params any) string {
	if params == nil {
		return ""
	}
	data, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	var call struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(data, &call)
	return call.Name
}

// formatPayload renders a payload for logs, cut at maxLoggedPayload bytes.
// Record stores passed to build_rows are the usual reason for the cut.
func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	if len(data) > maxLoggedPayload {
		return fmt.Sprintf("%s...(truncated, %d bytes)", data[:maxLoggedPayload], len(data))
	}
	return string(data)
}
