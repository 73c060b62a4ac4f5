package testserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpggio/tasking/internal/auth"
	"github.com/rpggio/tasking/internal/backend"
	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/rpggio/tasking/internal/mcp"
	"github.com/rpggio/tasking/internal/sqlite"
	"github.com/rpggio/tasking/internal/transport"
	"github.com/stretchr/testify/require"
)

const issuer = "tasking-test"

// TestServer is the full HTTP stack over an in-memory database and a fake backend.
type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Backend *Backend

	secret []byte
}

// RPCError is a JSON-RPC error as seen by a client.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AppCode returns the application error code carried in the error data.
func (e *RPCError) AppCode() string {
	var data struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(e.Data, &data)
	return data.Code
}

func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	fake := NewBackend(t)
	client, err := backend.NewClient(backend.Options{
		BaseURL: fake.URL(),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	activityRepo := sqlite.NewActivityRepository(db)
	workspaceSvc := workspace.NewService(
		sqlite.NewWorkspaceRepository(db),
		sqlite.NewEditRepository(db),
		sqlite.NewSelectionRepository(db),
		activityRepo,
		client,
		nil,
	)
	lookupSvc := lookup.NewService(client, time.Minute, nil)
	activitySvc := activity.NewService(activityRepo, nil)

	handler := mcp.NewHandler(workspaceSvc, lookupSvc, activitySvc)

	secret := []byte("test-secret-" + t.Name())
	validator, err := auth.NewHMACValidator(secret, issuer)
	require.NoError(t, err)

	server := httptest.NewServer(transport.NewServer(handler, transport.AuthMiddleware(validator)))
	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:  server,
		DB:      db,
		Backend: fake,
		secret:  secret,
	}
}

// Token mints a bearer token bound to tenantID.
func (ts *TestServer) Token(t *testing.T, tenantID string) string {
	t.Helper()

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "tester",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: tenantID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	require.NoError(t, err)
	return signed
}

// Call invokes method over /rpc. workspaceID is sent as a header when set.
// A non-nil RPCError is returned instead of failing the test.
func (ts *TestServer) Call(t *testing.T, token, workspaceID, method string, params any) (json.RawMessage, *RPCError) {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if workspaceID != "" {
		req.Header.Set(transport.WorkspaceHeader, workspaceID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Result, out.Error
}

// MustCall is Call that fails the test on an RPC error and decodes the result into v.
func (ts *TestServer) MustCall(t *testing.T, token, workspaceID, method string, params, v any) {
	t.Helper()

	result, rpcErr := ts.Call(t, token, workspaceID, method, params)
	require.Nil(t, rpcErr, "%s: %+v", method, rpcErr)
	if v != nil {
		require.NoError(t, json.Unmarshal(result, v))
	}
}
