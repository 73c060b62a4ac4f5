package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/tasking/internal/mcp"
	"github.com/stretchr/testify/require"
)

type testHandler struct {
	method string
	err    error
}

func (h *testHandler) Handle(_ context.Context, tenantID, workspaceID, method string, params json.RawMessage) (any, error) {
	h.method = method
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"tenant": tenantID, "workspace": workspaceID}, nil
}

type staticResolver struct {
	tenant string
}

func (r *staticResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	return r.tenant, nil
}

func postRPC(t *testing.T, url, body string, headers map[string]string) (*http.Response, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out Response
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{tenant: "tenant1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	resp, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_rows","id":1}`, map[string]string{
		"Authorization": "Bearer token",
		WorkspaceHeader: "ws1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "get_rows", handler.method)
	require.Nil(t, out.Error)
	require.Equal(t, map[string]any{"tenant": "tenant1", "workspace": "ws1"}, out.Result)
}

func TestHTTPServer_RequiresAuth(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, AuthMiddleware(&staticResolver{tenant: "tenant1"})))
	t.Cleanup(server.Close)

	resp, _ := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_rows","id":1}`, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_APIError(t *testing.T) {
	handler := &testHandler{err: &mcp.APIError{Code: "STALE_FETCH", Message: "superseded", RecoveryHint: "retry"}}
	server := httptest.NewServer(NewServer(handler, DefaultTenantMiddleware("default")))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"refresh_workspace","id":"a"}`, nil)
	require.NotNil(t, out.Error)
	require.Equal(t, ErrConflictCode, out.Error.Code)
	require.Equal(t, "superseded", out.Error.Message)
	require.Equal(t, "STALE_FETCH", out.Error.Data.(map[string]any)["code"])
}

func TestHTTPServer_UnknownMethod(t *testing.T) {
	handler := &testHandler{err: fmt.Errorf("%w: nope", mcp.ErrUnknownMethod)}
	server := httptest.NewServer(NewServer(handler, DefaultTenantMiddleware("default")))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"nope","id":2}`, nil)
	require.NotNil(t, out.Error)
	require.Equal(t, ErrMethodNotFound, out.Error.Code)
}

func TestHTTPServer_InvalidRequest(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, DefaultTenantMiddleware("default")))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"jsonrpc":"1.0"}`, nil)
	require.NotNil(t, out.Error)
	require.Equal(t, ErrInvalidReq, out.Error.Code)
}

func TestHTTPServer_ParseError(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, DefaultTenantMiddleware("default")))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"jsonrpc":`, nil)
	require.NotNil(t, out.Error)
	require.Equal(t, ErrParseCode, out.Error.Code)
}

func TestHTTPServer_Notification(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, DefaultTenantMiddleware("default")))
	t.Cleanup(server.Close)

	resp, _ := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_rows"}`, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "get_rows", handler.method)
}

func TestHTTPServer_RateLimit(t *testing.T) {
	limiter := NewTenantRateLimiter(0.001, 1)
	server := httptest.NewServer(NewServer(&testHandler{}, DefaultTenantMiddleware("default"), limiter.Middleware))
	t.Cleanup(server.Close)

	resp, _ := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_rows","id":1}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_rows","id":2}`, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHTTPServer_Health(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
