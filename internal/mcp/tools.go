package mcp

import "github.com/rpggio/tasking/internal/domain/activity"

var idSchema = map[string]any{
	"type":        []string{"string", "integer"},
	"description": "Row id (number or numeric string)",
}

var workspaceIDProperty = map[string]any{
	"type":        "string",
	"description": "Workspace ID (omit to use the X-Workspace-Id header or _meta.workspace_id)",
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Offline
		{
			Name:        "build_rows",
			Description: "Build tree rows from a raw record store without opening a workspace",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"records": map[string]any{
						"type":        "object",
						"description": "Record store keyed by record id",
					},
				},
				"required": []string{"records"},
			},
		},

		// Workspace lifecycle
		{
			Name:        "open_workspace",
			Description: "Open a workspace on a tasking view; call refresh_workspace to load records",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"view": map[string]any{
						"type":        "string",
						"description": "Backend view to mirror",
						"enum":        []string{"tasking_manager", "tasking_summary", "completed_images"},
					},
				},
				"required": []string{"view"},
			},
		},
		{
			Name:        "refresh_workspace",
			Description: "Fetch the record store from the backend and rebuild rows; pending edits are replayed",
			InputSchema: workspaceOnlySchema(),
		},
		{
			Name:        "get_rows",
			Description: "Get the current rows, selection and dirty row ids of a workspace",
			InputSchema: workspaceOnlySchema(),
		},
		{
			Name:        "close_workspace",
			Description: "Close a workspace; pending edits are kept but can no longer be applied",
			InputSchema: workspaceOnlySchema(),
		},

		// Editing
		{
			Name:        "edit_row",
			Description: "Edit the assignee or priority of a row. Assignee edits on an image cascade to its areas",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"workspace_id": workspaceIDProperty,
					"row_id":       idSchema,
					"field": map[string]any{
						"type":        "string",
						"description": "Field to edit",
						"enum":        []string{"assignee", "priority"},
					},
					"value": map[string]any{
						"type":        "string",
						"description": "New value; priority must be Low, Medium or High",
					},
				},
				"required": []string{"row_id", "field", "value"},
			},
		},
		{
			Name:        "select_rows",
			Description: "Replace the selection of a workspace",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"workspace_id": workspaceIDProperty,
					"row_ids": map[string]any{
						"type":        "array",
						"description": "Selected row ids; selecting an image selects all of its areas",
						"items":       idSchema,
					},
				},
				"required": []string{"row_ids"},
			},
		},
		{
			Name:        "discard_edits",
			Description: "Drop all pending edits and revert rows to the last fetched records",
			InputSchema: workspaceOnlySchema(),
		},

		// Submission
		{
			Name:        "preview_submission",
			Description: "Assemble the assign-tasks and update-priority payloads for the selection without sending them",
			InputSchema: workspaceOnlySchema(),
		},
		{
			Name:        "apply_submission",
			Description: "Send the payloads for the selection to the backend; confirmed edits leave the journal",
			InputSchema: workspaceOnlySchema(),
		},

		// Lookups and history
		{
			Name:        "list_options",
			Description: "List assignee or category options offered by the backend",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind": map[string]any{
						"type":        "string",
						"description": "Enumeration to list (omit for all)",
						"enum":        []string{"assignees", "categories"},
					},
				},
			},
		},
		{
			Name:        "get_recent_activity",
			Description: "Get recent activity entries for a workspace or a single row",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"workspace_id": workspaceIDProperty,
					"row_id": map[string]any{
						"type":        "string",
						"description": "Row ID to filter by",
					},
					"type": map[string]any{
						"type":        "string",
						"enum":        activityTypeNames(),
						"description": "Activity type to filter by",
					},
					"since": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "Timestamp to fetch activity since (RFC 3339)",
					},
					"limit": map[string]any{
						"type":        "integer",
						"minimum":     0,
						"description": "Maximum number of activity entries",
					},
					"offset": map[string]any{
						"type":        "integer",
						"minimum":     0,
						"description": "Offset for pagination",
					},
				},
			},
		},
	}
}

func workspaceOnlySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workspace_id": workspaceIDProperty,
		},
	}
}

func activityTypeNames() []string {
	names := make([]string, 0, len(activity.Types))
	for _, t := range activity.Types {
		names = append(names, string(t))
	}
	return names
}
