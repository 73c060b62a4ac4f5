package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tasking/internal/backend"
	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
)

var (
	// ErrInvalidParams indicates tool arguments that do not match the tool schema.
	ErrInvalidParams = errors.New("invalid params")
	// ErrWorkspaceRequired indicates a workspace tool called without a workspace id.
	ErrWorkspaceRequired = errors.New("workspace id required")
	// ErrUnknownMethod indicates a method outside the tool catalog.
	ErrUnknownMethod = errors.New("unknown method")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error(), RecoveryHint: "Check the tool input schema"}
	case errors.Is(err, ErrWorkspaceRequired):
		return &APIError{Code: "WORKSPACE_REQUIRED", Message: "workspace id required", RecoveryHint: "Pass workspace_id or the X-Workspace-Id header"}
	case errors.Is(err, tasking.ErrRowNotFound):
		return &APIError{Code: "ROW_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call get_rows for current row ids"}
	case errors.Is(err, tasking.ErrFieldNotEditable):
		return &APIError{Code: "FIELD_NOT_EDITABLE", Message: err.Error(), RecoveryHint: "Priority is only editable on image rows"}
	case errors.Is(err, tasking.ErrInvalidPriority):
		return &APIError{Code: "INVALID_PRIORITY", Message: err.Error(), RecoveryHint: "Use Low, Medium or High"}
	case errors.Is(err, tasking.ErrSentinelValue):
		return &APIError{Code: "SENTINEL_VALUE", Message: err.Error(), RecoveryHint: "Pick a concrete assignee"}
	case errors.Is(err, tasking.ErrMalformedStore), errors.Is(err, tasking.ErrInvalidID):
		return &APIError{Code: "MALFORMED_RECORDS", Message: err.Error(), RecoveryHint: "Records must be an object of objects"}
	case errors.Is(err, workspace.ErrWorkspaceNotFound):
		return &APIError{Code: "WORKSPACE_NOT_FOUND", Message: "workspace not found", RecoveryHint: "Call open_workspace"}
	case errors.Is(err, workspace.ErrWorkspaceClosed):
		return &APIError{Code: "WORKSPACE_CLOSED", Message: "workspace closed", RecoveryHint: "Open a new workspace"}
	case errors.Is(err, workspace.ErrInvalidView):
		return &APIError{Code: "INVALID_VIEW", Message: err.Error(), RecoveryHint: "Use tasking_manager, tasking_summary or completed_images"}
	case errors.Is(err, workspace.ErrStaleFetch):
		return &APIError{Code: "STALE_FETCH", Message: "a newer refresh superseded this one", RecoveryHint: "Call get_rows for the latest state"}
	case errors.Is(err, workspace.ErrSubmissionFailed):
		return &APIError{Code: "SUBMISSION_FAILED", Message: err.Error(), RecoveryHint: "Pending edits were kept; retry apply_submission"}
	case errors.Is(err, workspace.ErrNotSubmittable):
		return &APIError{Code: "EDIT_NOT_SUBMITTABLE", Message: err.Error(), RecoveryHint: "Set a non-empty assignee or priority; image assignees need at least one area"}
	case errors.Is(err, workspace.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, activity.ErrUnknownType), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error(), RecoveryHint: "Check the get_recent_activity filters"}
	case errors.Is(err, lookup.ErrInvalidKind):
		return &APIError{Code: "INVALID_KIND", Message: err.Error(), RecoveryHint: "Use assignees or categories"}
	case errors.Is(err, lookup.ErrUnavailable):
		return &APIError{Code: "OPTIONS_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Retry later"}
	case errors.Is(err, backend.ErrNotConfigured):
		return &APIError{Code: "BACKEND_NOT_CONFIGURED", Message: err.Error(), RecoveryHint: "Set TASKING_BACKEND_URL; build_rows works offline"}
	case errors.Is(err, backend.ErrBackendStatus), errors.Is(err, backend.ErrResponseTooLarge):
		return &APIError{Code: "BACKEND_ERROR", Message: err.Error(), RecoveryHint: "Retry later"}
	default:
		return nil
	}
}
