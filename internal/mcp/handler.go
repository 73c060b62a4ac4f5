package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
)

// WorkspaceService defines workspace operations needed by MCP.
type WorkspaceService interface {
	Open(ctx context.Context, tenantID string, req workspace.OpenRequest) (*workspace.Workspace, error)
	Close(ctx context.Context, tenantID, id string) error
	Refresh(ctx context.Context, tenantID, id string) (*workspace.Snapshot, error)
	Rows(ctx context.Context, tenantID, id string) (*workspace.Snapshot, error)
	Edit(ctx context.Context, tenantID, id string, edit tasking.Edit) (*workspace.Snapshot, error)
	Select(ctx context.Context, tenantID, id string, rowIDs []tasking.ID) (*workspace.Snapshot, error)
	Preview(ctx context.Context, tenantID, id string) (*tasking.Submission, error)
	Apply(ctx context.Context, tenantID, id string) (*workspace.ApplyResult, error)
	DiscardEdits(ctx context.Context, tenantID, id string) (*workspace.Snapshot, error)
}

// LookupService defines option lookups needed by MCP.
type LookupService interface {
	Options(ctx context.Context, tenantID string) (*lookup.Options, error)
	List(ctx context.Context, tenantID string, kind lookup.Kind) ([]lookup.Option, error)
	ResolveAssignee(ctx context.Context, tenantID, id string) string
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Handler dispatches MCP commands.
type Handler struct {
	workspaces WorkspaceService
	lookups    LookupService
	activity   ActivityService
	validator  *paramValidator
}

// NewHandler creates a new MCP handler. lookups may be nil when no backend
// is configured for options.
func NewHandler(workspaces WorkspaceService, lookups LookupService, activitySvc ActivityService) *Handler {
	validator, err := newParamValidator(buildToolCatalog())
	if err != nil {
		// The catalog is static; a compile failure is a programming error.
		panic(fmt.Sprintf("mcp: tool catalog: %v", err))
	}
	return &Handler{
		workspaces: workspaces,
		lookups:    lookups,
		activity:   activitySvc,
		validator:  validator,
	}
}

// Tools returns the tool catalog served by the handler.
func (h *Handler) Tools() []ToolDefinition {
	return buildToolCatalog()
}

// Handle dispatches MCP requests to domain services.
//
// workspaceID is the workspace bound to the request by transport metadata;
// a workspace_id argument takes its place when the metadata is absent.
func (h *Handler) Handle(ctx context.Context, tenantID, workspaceID, method string, params json.RawMessage) (any, error) {
	if err := h.validator.validate(method, params); err != nil {
		return nil, mapError(err)
	}

	switch method {
	case "build_rows":
		var req BuildRowsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		store, warnings, err := tasking.DecodeStore(req.Records)
		if err != nil {
			return nil, mapError(err)
		}
		rows, buildWarnings := tasking.BuildRows(store)
		return BuildRowsResponse{
			Rows:     tasking.RefreshAggregates(rows),
			Warnings: append(warnings, buildWarnings...),
		}, nil
	case "open_workspace":
		var req OpenWorkspaceParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		ws, err := h.workspaces.Open(ctx, tenantID, workspace.OpenRequest{View: req.View})
		if err != nil {
			return nil, mapError(err)
		}
		return ws, nil
	case "refresh_workspace", "get_rows", "discard_edits":
		id, err := h.workspaceID(params, workspaceID)
		if err != nil {
			return nil, err
		}
		var snap *workspace.Snapshot
		switch method {
		case "refresh_workspace":
			snap, err = h.workspaces.Refresh(ctx, tenantID, id)
		case "get_rows":
			snap, err = h.workspaces.Rows(ctx, tenantID, id)
		default:
			snap, err = h.workspaces.DiscardEdits(ctx, tenantID, id)
		}
		if err != nil {
			return nil, mapError(err)
		}
		return h.snapshotResponse(ctx, tenantID, snap), nil
	case "close_workspace":
		id, err := h.workspaceID(params, workspaceID)
		if err != nil {
			return nil, err
		}
		if err := h.workspaces.Close(ctx, tenantID, id); err != nil {
			return nil, mapError(err)
		}
		return StatusResponse{Status: "closed"}, nil
	case "edit_row":
		var req EditRowParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		id, err := resolveWorkspaceID(req.WorkspaceID, workspaceID)
		if err != nil {
			return nil, err
		}
		snap, err := h.workspaces.Edit(ctx, tenantID, id, tasking.Edit{
			RowID: req.RowID,
			Field: req.Field,
			Value: req.Value,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return h.snapshotResponse(ctx, tenantID, snap), nil
	case "select_rows":
		var req SelectRowsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		id, err := resolveWorkspaceID(req.WorkspaceID, workspaceID)
		if err != nil {
			return nil, err
		}
		snap, err := h.workspaces.Select(ctx, tenantID, id, req.RowIDs)
		if err != nil {
			return nil, mapError(err)
		}
		return h.snapshotResponse(ctx, tenantID, snap), nil
	case "preview_submission":
		id, err := h.workspaceID(params, workspaceID)
		if err != nil {
			return nil, err
		}
		sub, err := h.workspaces.Preview(ctx, tenantID, id)
		if err != nil {
			return nil, mapError(err)
		}
		return sub, nil
	case "apply_submission":
		id, err := h.workspaceID(params, workspaceID)
		if err != nil {
			return nil, err
		}
		result, err := h.workspaces.Apply(ctx, tenantID, id)
		if err != nil {
			return nil, mapError(err)
		}
		return ApplyResponse{
			Submission:      result.Submission,
			NoOp:            result.NoOp,
			AssignmentsSent: result.AssignmentsSent,
			PrioritiesSent:  result.PrioritiesSent,
			Workspace:       h.snapshotResponse(ctx, tenantID, result.Snapshot),
		}, nil
	case "list_options":
		var req ListOptionsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if h.lookups == nil {
			return nil, mapError(lookup.ErrUnavailable)
		}
		if req.Kind == "" {
			opts, err := h.lookups.Options(ctx, tenantID)
			if err != nil {
				return nil, mapError(err)
			}
			return opts, nil
		}
		opts, err := h.lookups.List(ctx, tenantID, lookup.Kind(req.Kind))
		if err != nil {
			return nil, mapError(err)
		}
		return opts, nil
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			WorkspaceID: req.WorkspaceID,
			RowID:       req.RowID,
			Since:       req.Since,
			Limit:       req.Limit,
			Offset:      req.Offset,
		}
		if opts.WorkspaceID == "" {
			opts.WorkspaceID = workspaceID
		}
		if req.Type != "" {
			activityType := activity.ActivityType(req.Type)
			opts.ActivityType = &activityType
		}
		entries, err := h.activity.GetRecentActivity(ctx, tenantID, opts)
		if err != nil {
			return nil, mapError(err)
		}
		resp := make([]ActivityEntryResponse, 0, len(entries))
		for _, entry := range entries {
			var details json.RawMessage
			if entry.Details != "" && json.Valid([]byte(entry.Details)) {
				details = json.RawMessage(entry.Details)
			}
			resp = append(resp, ActivityEntryResponse{
				Timestamp:   entry.CreatedAt,
				Type:        entry.ActivityType,
				WorkspaceID: entry.WorkspaceID,
				RowID:       entry.RowID,
				Summary:     entry.Summary,
				Details:     details,
				FetchSeq:    entry.FetchSeq,
			})
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return mapError(fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}
	return nil
}

func (h *Handler) workspaceID(params json.RawMessage, fromContext string) (string, error) {
	var req WorkspaceParams
	if err := decodeParams(params, &req); err != nil {
		return "", err
	}
	return resolveWorkspaceID(req.WorkspaceID, fromContext)
}

func resolveWorkspaceID(fromParams, fromContext string) (string, error) {
	id := fromContext
	if id == "" {
		id = fromParams
	}
	if id == "" {
		return "", mapError(ErrWorkspaceRequired)
	}
	return id, nil
}

// snapshotResponse attaches display names for the assignees on the rows.
func (h *Handler) snapshotResponse(ctx context.Context, tenantID string, snap *workspace.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{Snapshot: snap}
	if h.lookups == nil || snap == nil {
		return resp
	}

	seen := map[string]bool{}
	var ids []string
	for _, row := range snap.Rows {
		if row.Assignee == "" || row.Assignee == tasking.Multiple || seen[row.Assignee] {
			continue
		}
		seen[row.Assignee] = true
		ids = append(ids, row.Assignee)
	}
	if len(ids) == 0 {
		return resp
	}

	resp.AssigneeNames = make(map[string]string, len(ids))
	for _, id := range ids {
		resp.AssigneeNames[id] = h.lookups.ResolveAssignee(ctx, tenantID, id)
	}
	return resp
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
