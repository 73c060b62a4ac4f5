package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tasking mirrors imagery tasking views as editable tree workspaces.

Core concepts:
- Record store: the backend's flat map of image and area records keyed by id.
- Rows: images at the top level, their areas beneath them (treePath = [img_<id>, <area id>]).
- Workspace: one open view (tasking_manager, tasking_summary, completed_images) with its own
  fetched records, pending edits, and selection.
- "Multiple": shown as an image's assignee when its areas disagree. It is never a value.

Default workflow:
1) open_workspace(view) then refresh_workspace.
2) Inspect with get_rows; list_options(kind=assignees) for valid assignees.
3) edit_row to change an assignee (cascades from an image to its areas) or an image priority.
4) select_rows, then preview_submission to see exactly what will be sent.
5) apply_submission. Confirmed edits leave the journal; failures keep it for a retry.
6) close_workspace when done.

Transport notes:
- HTTP: pass the workspace via the X-Workspace-Id header or workspace_id arguments.
- Stdio: pass _meta.workspace_id when supported; otherwise use workspace_id arguments.

Docs:
- tasking://docs/index
- tasking://docs/concepts
- tasking://docs/workflows/assigning
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tasking://docs/index",
		Name:        "docs_index",
		Title:       "tasking docs index",
		Description: "Entry point: what each tool does and which doc to read next.",
		Content: `# tasking: Docs Index

## Tools

- ` + "`build_rows`" + `: turn a raw record store into rows without a workspace.
- ` + "`open_workspace`" + ` / ` + "`close_workspace`" + `: workspace lifecycle.
- ` + "`refresh_workspace`" + `: fetch records from the backend; pending edits are replayed on top.
- ` + "`get_rows`" + `: rows, selection, dirty row ids, and build warnings.
- ` + "`edit_row`" + `: change an assignee or a priority.
- ` + "`select_rows`" + `: replace the selection.
- ` + "`preview_submission`" + ` / ` + "`apply_submission`" + `: build or send the payloads.
- ` + "`discard_edits`" + `: revert to the last fetched records.
- ` + "`list_options`" + `: assignee and category options.
- ` + "`get_recent_activity`" + `: what happened in a workspace.

## Docs

- ` + "`tasking://docs/concepts`" + `: rows, aggregates, and edit rules.
- ` + "`tasking://docs/workflows/assigning`" + `: the assign and submit loop.
`,
	},
	{
		URI:         "tasking://docs/concepts",
		Name:        "docs_concepts",
		Title:       "Concepts and rules",
		Description: "How records become rows and how edits propagate.",
		Content: `# Concepts and rules

## Records and rows

- A record with an image file name is an image. A record without one but with a parent id is an area.
- Ids arrive as numbers or strings; both name the same record.
- Areas whose parent image is missing are dropped and reported as warnings.

## Assignee aggregate

An image row shows the common assignee of its areas, or "Multiple" when they differ.
Editing an image's assignee sets every area beneath it. Editing an area recomputes its image.
"Multiple" cannot be written as a value.

## Priority

Only image rows carry a priority: Low, Medium or High.

## Dirty rows and refresh

Edits are kept in a journal and replayed after every refresh. Rows whose edits the backend
has not confirmed are listed in ` + "`dirty`" + `. When two refreshes overlap, the later one wins;
the earlier one fails with STALE_FETCH.
`,
	},
	{
		URI:         "tasking://docs/workflows/assigning",
		Name:        "docs_workflow_assigning",
		Title:       "Workflow: assigning tasks",
		Description: "Playbook for assigning areas and submitting them.",
		Content: `# Workflow: assigning tasks

1. ` + "`open_workspace`" + ` with view ` + "`tasking_manager`" + `, then ` + "`refresh_workspace`" + `.
2. ` + "`list_options`" + ` with kind ` + "`assignees`" + ` to pick a valid assignee.
3. ` + "`edit_row`" + ` on an image to assign all of its areas, or on a single area.
4. ` + "`select_rows`" + ` with the rows to submit. Selecting an image selects its areas.
5. ` + "`preview_submission`" + `. Areas whose assignee is empty or "Multiple" are not sent.
6. ` + "`apply_submission`" + `. On SUBMISSION_FAILED the edits stay pending; retry or ` + "`discard_edits`" + `.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
