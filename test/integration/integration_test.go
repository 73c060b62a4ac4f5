package integration_test

import (
	"encoding/json"
	"testing"

	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/rpggio/tasking/internal/mcp"
	"github.com/rpggio/tasking/internal/testserver"
	"github.com/stretchr/testify/require"
)

const managerRecords = `{
	"1": {"Image File Name": "IMG_B", "Priority": "Low"},
	"2": {"Area Name": "North", "Parent ID": 1, "Assignee": "bob"},
	"3": {"Area Name": "South", "Parent ID": 1, "Assignee": "carol"},
	"4": {"Image File Name": "IMG_A", "Priority": "Medium", "Assignee": "erin"},
	"5": {"Area Name": "Orphan", "Parent ID": 99}
}`

type snapshot struct {
	WorkspaceID   string            `json:"workspace_id"`
	FetchSeq      int64             `json:"fetch_seq"`
	Rows          []tasking.Row     `json:"rows"`
	Selection     []tasking.ID      `json:"selection"`
	Dirty         []tasking.ID      `json:"dirty"`
	Warnings      []tasking.Warning `json:"warnings"`
	AssigneeNames map[string]string `json:"assignee_names"`
}

func rowByID(t *testing.T, rows []tasking.Row, id tasking.ID) tasking.Row {
	t.Helper()
	for _, r := range rows {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("row %s not found", id)
	return tasking.Row{}
}

func openWorkspace(t *testing.T, ts *testserver.TestServer, token string) string {
	t.Helper()
	var ws workspace.Workspace
	ts.MustCall(t, token, "", "open_workspace", map[string]any{"view": "tasking_manager"}, &ws)
	require.NotEmpty(t, ws.ID)
	return ws.ID
}

func TestIntegration_AssignAndPrioritize(t *testing.T) {
	ts := testserver.New(t)
	ts.Backend.SetRecords("tasking_manager", managerRecords)
	ts.Backend.SetAssignees(`[{"username": "bob", "displayName": "Bob B"}, {"username": "dave", "displayName": "Dave D"}]`)
	token := ts.Token(t, "tenant-a")

	wsID := openWorkspace(t, ts, token)

	var snap snapshot
	ts.MustCall(t, token, wsID, "refresh_workspace", nil, &snap)
	require.Equal(t, int64(1), snap.FetchSeq)
	require.Len(t, snap.Rows, 4)
	require.Equal(t, []string{"IMG_A"}, snap.Rows[0].GroupName)
	require.Equal(t, tasking.Multiple, rowByID(t, snap.Rows, "1").Assignee)
	require.Len(t, snap.Warnings, 1)
	require.Equal(t, "Bob B", snap.AssigneeNames["bob"])

	// The caller's token is forwarded to the backend.
	headers := ts.Backend.AuthHeaders()
	require.NotEmpty(t, headers)
	require.Equal(t, "Bearer "+token, headers[len(headers)-1])

	ts.MustCall(t, token, wsID, "edit_row", map[string]any{"row_id": 1, "field": "assignee", "value": "dave"}, &snap)
	require.Equal(t, "dave", rowByID(t, snap.Rows, "2").Assignee)
	require.Equal(t, "dave", rowByID(t, snap.Rows, "3").Assignee)
	require.Equal(t, "Dave D", snap.AssigneeNames["dave"])

	ts.MustCall(t, token, wsID, "edit_row", map[string]any{"row_id": "1", "field": "priority", "value": "High"}, &snap)
	ts.MustCall(t, token, wsID, "select_rows", map[string]any{"row_ids": []any{1}}, &snap)
	require.Equal(t, []tasking.ID{"1"}, snap.Selection)

	var preview tasking.Submission
	ts.MustCall(t, token, wsID, "preview_submission", nil, &preview)
	require.Len(t, preview.Assignments.Tasks, 2)
	require.Equal(t, tasking.PriorityHigh, preview.Priorities["1"].Priority)

	var applied mcp.ApplyResponse
	ts.MustCall(t, token, wsID, "apply_submission", nil, &applied)
	require.True(t, applied.AssignmentsSent)
	require.True(t, applied.PrioritiesSent)
	require.Empty(t, applied.Workspace.Dirty)

	assignments := ts.Backend.Assignments()
	require.Len(t, assignments, 1)
	require.JSONEq(t, `{"Tasks": [
		{"SCVU Image Area ID": 2, "Assignee": "dave"},
		{"SCVU Image Area ID": 3, "Assignee": "dave"}
	]}`, string(assignments[0]))

	priorities := ts.Backend.Priorities()
	require.Len(t, priorities, 1)
	require.JSONEq(t, `{"1": {"Priority": "High"}}`, string(priorities[0]))

	var entries []mcp.ActivityEntryResponse
	ts.MustCall(t, token, "", "get_recent_activity", map[string]any{"workspace_id": wsID}, &entries)
	require.NotEmpty(t, entries)
}

func TestIntegration_FailedApplyKeepsEdits(t *testing.T) {
	ts := testserver.New(t)
	ts.Backend.SetRecords("tasking_manager", managerRecords)
	token := ts.Token(t, "tenant-a")

	wsID := openWorkspace(t, ts, token)
	ts.MustCall(t, token, wsID, "refresh_workspace", nil, nil)
	ts.MustCall(t, token, wsID, "edit_row", map[string]any{"row_id": 2, "field": "assignee", "value": "dave"}, nil)
	ts.MustCall(t, token, wsID, "select_rows", map[string]any{"row_ids": []any{2}}, nil)

	ts.Backend.FailNextWrites(1)
	_, rpcErr := ts.Call(t, token, wsID, "apply_submission", nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, "SUBMISSION_FAILED", rpcErr.AppCode())

	var snap snapshot
	ts.MustCall(t, token, wsID, "get_rows", nil, &snap)
	require.Equal(t, []tasking.ID{"2"}, snap.Dirty)
	require.Equal(t, "dave", rowByID(t, snap.Rows, "2").Assignee)

	// Pending edits survive a refresh and the retry succeeds.
	ts.MustCall(t, token, wsID, "refresh_workspace", nil, &snap)
	require.Equal(t, "dave", rowByID(t, snap.Rows, "2").Assignee)
	require.Equal(t, tasking.Multiple, rowByID(t, snap.Rows, "1").Assignee)

	var applied mcp.ApplyResponse
	ts.MustCall(t, token, wsID, "apply_submission", nil, &applied)
	require.True(t, applied.AssignmentsSent)
	require.Len(t, ts.Backend.Assignments(), 1)
}

func TestIntegration_DiscardEdits(t *testing.T) {
	ts := testserver.New(t)
	ts.Backend.SetRecords("tasking_manager", managerRecords)
	token := ts.Token(t, "tenant-a")

	wsID := openWorkspace(t, ts, token)
	ts.MustCall(t, token, wsID, "refresh_workspace", nil, nil)
	ts.MustCall(t, token, wsID, "edit_row", map[string]any{"row_id": 4, "field": "priority", "value": "High"}, nil)

	var snap snapshot
	ts.MustCall(t, token, wsID, "discard_edits", nil, &snap)
	require.Empty(t, snap.Dirty)
	require.Equal(t, tasking.PriorityMedium, rowByID(t, snap.Rows, "4").Priority)
}

func TestIntegration_Errors(t *testing.T) {
	ts := testserver.New(t)
	ts.Backend.SetRecords("tasking_manager", managerRecords)
	token := ts.Token(t, "tenant-a")
	wsID := openWorkspace(t, ts, token)
	ts.MustCall(t, token, wsID, "refresh_workspace", nil, nil)

	tests := []struct {
		name   string
		method string
		params any
		code   string
	}{
		{"sentinel value", "edit_row", map[string]any{"row_id": 1, "field": "assignee", "value": tasking.Multiple}, "SENTINEL_VALUE"},
		{"priority on area", "edit_row", map[string]any{"row_id": 2, "field": "priority", "value": "High"}, "FIELD_NOT_EDITABLE"},
		{"bad priority", "edit_row", map[string]any{"row_id": 1, "field": "priority", "value": "Urgent"}, "INVALID_PRIORITY"},
		{"unknown row", "edit_row", map[string]any{"row_id": 404, "field": "assignee", "value": "x"}, "ROW_NOT_FOUND"},
		{"image without areas", "edit_row", map[string]any{"row_id": 4, "field": "assignee", "value": "zoe"}, "EDIT_NOT_SUBMITTABLE"},
		{"cleared priority", "edit_row", map[string]any{"row_id": 1, "field": "priority", "value": ""}, "EDIT_NOT_SUBMITTABLE"},
		{"unknown view", "open_workspace", map[string]any{"view": "nope"}, "INVALID_PARAMS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rpcErr := ts.Call(t, token, wsID, tt.method, tt.params)
			require.NotNil(t, rpcErr)
			require.Equal(t, tt.code, rpcErr.AppCode())
		})
	}
}

func TestIntegration_TenantIsolation(t *testing.T) {
	ts := testserver.New(t)
	tokenA := ts.Token(t, "tenant-a")
	tokenB := ts.Token(t, "tenant-b")

	wsID := openWorkspace(t, ts, tokenA)

	_, rpcErr := ts.Call(t, tokenB, wsID, "get_rows", nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, "WORKSPACE_NOT_FOUND", rpcErr.AppCode())
}

func TestIntegration_BuildRowsAndOptions(t *testing.T) {
	ts := testserver.New(t)
	ts.Backend.SetAssignees(`{"bob": "Bob B"}`)
	token := ts.Token(t, "tenant-a")

	var built mcp.BuildRowsResponse
	ts.MustCall(t, token, "", "build_rows", map[string]any{"records": json.RawMessage(managerRecords)}, &built)
	require.Len(t, built.Rows, 4)
	require.Len(t, built.Warnings, 1)

	var opts []lookup.Option
	ts.MustCall(t, token, "", "list_options", map[string]any{"kind": "assignees"}, &opts)
	require.Equal(t, []lookup.Option{{ID: "bob", Name: "Bob B"}}, opts)
}
