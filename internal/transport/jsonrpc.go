package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

// Application error codes, from the range JSON-RPC reserves for servers.
const (
	ErrNotFoundCode = -32004
	ErrConflictCode = -32009
	ErrUpstreamCode = -32010
)

var (
	// ErrParse indicates a body that is not JSON.
	ErrParse = errors.New("parse error")
	// ErrInvalidRequest indicates JSON that is not a JSON-RPC 2.0 request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseRequest parses and validates a JSON-RPC request payload.
// Numeric ids are kept as json.Number so they echo back unchanged.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, ErrInvalidRequest
	}
	if len(bytes.TrimSpace(req.Params)) > 0 {
		switch bytes.TrimSpace(req.Params)[0] {
		case '{', 'n':
		default:
			return Request{}, fmt.Errorf("%w: params must be an object", ErrInvalidRequest)
		}
	}
	return req, nil
}

// ErrorCodeFor maps an application error code to its JSON-RPC error code.
func ErrorCodeFor(apiCode string) int {
	switch apiCode {
	case "INVALID_PARAMS", "INVALID_INPUT", "INVALID_VIEW", "INVALID_KIND",
		"INVALID_PRIORITY", "SENTINEL_VALUE", "FIELD_NOT_EDITABLE",
		"MALFORMED_RECORDS", "WORKSPACE_REQUIRED", "EDIT_NOT_SUBMITTABLE":
		return ErrInvalidParams
	case "ROW_NOT_FOUND", "WORKSPACE_NOT_FOUND":
		return ErrNotFoundCode
	case "STALE_FETCH", "WORKSPACE_CLOSED":
		return ErrConflictCode
	case "SUBMISSION_FAILED", "BACKEND_ERROR", "BACKEND_NOT_CONFIGURED", "OPTIONS_UNAVAILABLE":
		return ErrUpstreamCode
	default:
		return ErrInternal
	}
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
}

// WriteError writes a JSON-RPC error response.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
