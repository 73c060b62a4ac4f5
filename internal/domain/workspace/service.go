package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/repository"
)

// Service handles workspace operations.
type Service struct {
	workspaces WorkspaceRepository
	edits      EditRepository
	selections SelectionRepository
	activities ActivityRepository
	backend    Backend
	logger     *slog.Logger
}

// NewService creates a new workspace service.
func NewService(
	workspaces WorkspaceRepository,
	edits EditRepository,
	selections SelectionRepository,
	activities ActivityRepository,
	backend Backend,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		workspaces: workspaces,
		edits:      edits,
		selections: selections,
		activities: activities,
		backend:    backend,
		logger:     logger,
	}
}

// OpenRequest describes a workspace open request.
type OpenRequest struct {
	View ViewKind
}

// Open creates an empty workspace for a view. Call Refresh to load records.
func (s *Service) Open(ctx context.Context, tenantID string, req OpenRequest) (*Workspace, error) {
	if !req.View.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, req.View)
	}

	now := time.Now()
	ws := &Workspace{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		View:         req.View,
		Status:       StatusActive,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.workspaces.Create(ctx, tenantID, ws); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		WorkspaceID:  ws.ID,
		ActivityType: activity.TypeWorkspaceOpened,
		Summary:      fmt.Sprintf("opened %s workspace", ws.View),
	})
	return ws, nil
}

// Get returns a workspace by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Workspace, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	ws, err := s.workspaces.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("loading workspace: %w", err)
	}
	return ws, nil
}

// Close closes a workspace. Pending edits are kept for inspection.
func (s *Service) Close(ctx context.Context, tenantID, id string) error {
	ws, err := s.getActive(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.workspaces.Close(ctx, tenantID, ws.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("closing workspace: %w", err)
	}
	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		WorkspaceID:  ws.ID,
		ActivityType: activity.TypeWorkspaceClosed,
		Summary:      "closed workspace",
		FetchSeq:     ws.AppliedSeq,
	})
	return nil
}

// Refresh fetches the record store from the backend and replaces the working copy.
//
// Each refresh takes a new fetch sequence number. If another refresh was
// started while this one was waiting on the backend, this response is
// discarded and ErrStaleFetch is returned. Pending edits are replayed on top
// of the fresh records; edits whose rows disappeared are dropped.
func (s *Service) Refresh(ctx context.Context, tenantID, id string) (*Snapshot, error) {
	ws, err := s.getActive(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	seq, err := s.workspaces.IssueFetch(ctx, tenantID, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing fetch: %w", err)
	}

	store, decodeWarnings, err := s.backend.FetchRecords(ctx, ws.View)
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}

	if err := s.workspaces.ReplaceRecords(ctx, tenantID, ws.ID, seq, store); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Info("discarding stale fetch", "workspace_id", ws.ID, "fetch_seq", seq)
			s.logActivity(ctx, tenantID, &activity.ActivityEntry{
				WorkspaceID:  ws.ID,
				ActivityType: activity.TypeFetchDiscarded,
				Summary:      fmt.Sprintf("discarded fetch %d", seq),
				FetchSeq:     seq,
			})
			return nil, ErrStaleFetch
		}
		return nil, fmt.Errorf("replacing records: %w", err)
	}
	ws.AppliedSeq = seq

	snap, stale, err := s.build(ctx, ws, store)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		if err := s.edits.Delete(ctx, ws.ID, stale); err != nil {
			return nil, fmt.Errorf("dropping stale edits: %w", err)
		}
	}
	if err := s.selections.Replace(ctx, ws.ID, snap.Selection); err != nil {
		return nil, fmt.Errorf("pruning selection: %w", err)
	}

	snap.Warnings = append(decodeWarnings, snap.Warnings...)
	for _, w := range snap.Warnings {
		s.logger.Warn("record skipped", "workspace_id", ws.ID, "record_id", w.RecordID, "key", w.Key, "reason", w.Reason)
		rowID := string(w.RecordID)
		s.logActivity(ctx, tenantID, &activity.ActivityEntry{
			WorkspaceID:  ws.ID,
			RowID:        &rowID,
			ActivityType: activity.TypeRecordDropped,
			Summary:      w.Reason,
			FetchSeq:     seq,
		})
	}
	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		WorkspaceID:  ws.ID,
		ActivityType: activity.TypeRecordsFetched,
		Summary:      fmt.Sprintf("fetched %d records, built %d rows", len(store), len(snap.Rows)),
		FetchSeq:     seq,
	})
	return snap, nil
}

// Rows returns the current working rows of a workspace.
func (s *Service) Rows(ctx context.Context, tenantID, id string) (*Snapshot, error) {
	ws, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	snap, _, err := s.load(ctx, ws)
	return snap, err
}

// Edit validates an edit against the current rows and journals it.
func (s *Service) Edit(ctx context.Context, tenantID, id string, edit tasking.Edit) (*Snapshot, error) {
	ws, err := s.getActive(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	snap, _, err := s.load(ctx, ws)
	if err != nil {
		return nil, err
	}

	rows, err := tasking.ApplyEdit(snap.Rows, edit)
	if err != nil {
		return nil, err
	}
	if err := submittable(snap.Rows, edit); err != nil {
		return nil, err
	}
	if _, err := s.edits.Append(ctx, ws.ID, edit); err != nil {
		return nil, fmt.Errorf("journaling edit: %w", err)
	}

	snap.Rows = rows
	snap.Dirty = dirtyIDs(rows)

	rowID := string(edit.RowID)
	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		WorkspaceID:  ws.ID,
		RowID:        &rowID,
		ActivityType: activity.TypeRowEdited,
		Summary:      fmt.Sprintf("set %s on row %s", edit.Field, edit.RowID),
		Details:      mustJSON(edit),
		FetchSeq:     ws.AppliedSeq,
	})
	return snap, nil
}

// Select replaces the selection. Every id must name a current row.
func (s *Service) Select(ctx context.Context, tenantID, id string, rowIDs []tasking.ID) (*Snapshot, error) {
	ws, err := s.getActive(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	snap, _, err := s.load(ctx, ws)
	if err != nil {
		return nil, err
	}

	idx := tasking.Index(snap.Rows)
	seen := make(map[tasking.ID]bool, len(rowIDs))
	selection := make([]tasking.ID, 0, len(rowIDs))
	for _, rowID := range rowIDs {
		if _, ok := idx[rowID]; !ok {
			return nil, fmt.Errorf("%w: %s", tasking.ErrRowNotFound, rowID)
		}
		if seen[rowID] {
			continue
		}
		seen[rowID] = true
		selection = append(selection, rowID)
	}

	if err := s.selections.Replace(ctx, ws.ID, selection); err != nil {
		return nil, fmt.Errorf("saving selection: %w", err)
	}
	snap.Selection = selection
	return snap, nil
}

// Preview assembles the submission for the current selection without sending it.
func (s *Service) Preview(ctx context.Context, tenantID, id string) (*tasking.Submission, error) {
	ws, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	snap, _, err := s.load(ctx, ws)
	if err != nil {
		return nil, err
	}
	sub := tasking.Assemble(snap.Rows, snap.Selection)
	return &sub, nil
}

// Apply sends the submission for the current selection to the backend.
//
// An empty submission is a no-op and makes no backend calls. Assignments and
// priorities are sent independently; each confirmed payload is written
// through to the stored records and its edits leave the journal. When a
// newer fetch landed while the backend was busy, its records are kept as they
// are and only the journal is cleared. A failed
// payload keeps its edits, so the rows stay dirty, and the returned error
// wraps ErrSubmissionFailed. The result is returned in both cases.
func (s *Service) Apply(ctx context.Context, tenantID, id string) (*ApplyResult, error) {
	ws, err := s.getActive(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	snap, edits, err := s.load(ctx, ws)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{Submission: tasking.Assemble(snap.Rows, snap.Selection)}
	if result.Submission.IsEmpty() {
		result.NoOp = true
		result.Snapshot = snap
		return result, nil
	}

	store, err := s.workspaces.LoadRecords(ctx, tenantID, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	rowsByID := make(map[tasking.ID]tasking.Row, len(snap.Rows))
	for _, r := range snap.Rows {
		rowsByID[r.ID] = r
	}

	var (
		failures  []error
		confirmed []tasking.Record
		assigned  = map[tasking.ID]bool{}
		priorized = map[tasking.ID]bool{}
	)

	if len(result.Submission.Assignments.Tasks) > 0 {
		if err := s.backend.AssignTasks(ctx, result.Submission.Assignments); err != nil {
			failures = append(failures, fmt.Errorf("assigning tasks: %w", err))
		} else {
			result.AssignmentsSent = true
			for _, rowID := range result.Submission.AssignedRows {
				assigned[rowID] = true
				if rec, ok := store[rowID]; ok {
					rec.Assignee = rowsByID[rowID].Assignee
					confirmed = append(confirmed, rec)
				}
			}
		}
	}

	if len(result.Submission.Priorities) > 0 {
		if err := s.backend.UpdatePriorities(ctx, result.Submission.Priorities); err != nil {
			failures = append(failures, fmt.Errorf("updating priorities: %w", err))
		} else {
			result.PrioritiesSent = true
			for imageID, update := range result.Submission.Priorities {
				priorized[imageID] = true
				if rec, ok := store[imageID]; ok {
					rec.Priority = update.Priority
					confirmed = append(confirmed, rec)
				}
			}
		}
	}

	if len(confirmed) > 0 {
		err := s.workspaces.UpdateRecords(ctx, tenantID, ws.ID, ws.AppliedSeq, confirmed)
		switch {
		case errors.Is(err, repository.ErrConflict):
			// A newer fetch already replaced the records; keep its values.
			s.logger.Info("skipping write-back after newer fetch", "workspace_id", ws.ID, "fetch_seq", ws.AppliedSeq)
		case err != nil:
			return nil, fmt.Errorf("writing confirmed records: %w", err)
		}
	}
	if done := confirmedEdits(edits, snap.Rows, assigned, priorized); len(done) > 0 {
		if err := s.edits.Delete(ctx, ws.ID, done); err != nil {
			return nil, fmt.Errorf("clearing confirmed edits: %w", err)
		}
	}

	after, _, err := s.load(ctx, ws)
	if err != nil {
		return nil, err
	}
	result.Snapshot = after

	if len(failures) > 0 {
		failure := errors.Join(failures...)
		s.logger.Error("submission failed", "workspace_id", ws.ID, "error", failure)
		s.logActivity(ctx, tenantID, &activity.ActivityEntry{
			WorkspaceID:  ws.ID,
			ActivityType: activity.TypeSubmissionFailed,
			Summary:      failure.Error(),
			Details:      mustJSON(result.Submission),
			FetchSeq:     ws.AppliedSeq,
		})
		return result, fmt.Errorf("%w: %w", ErrSubmissionFailed, failure)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		WorkspaceID:  ws.ID,
		ActivityType: activity.TypeSubmissionApplied,
		Summary: fmt.Sprintf("assigned %d tasks, updated %d priorities",
			len(result.Submission.Assignments.Tasks), len(result.Submission.Priorities)),
		Details:  mustJSON(result.Submission),
		FetchSeq: ws.AppliedSeq,
	})
	return result, nil
}

// DiscardEdits drops every pending edit, reverting the rows to the last fetch.
func (s *Service) DiscardEdits(ctx context.Context, tenantID, id string) (*Snapshot, error) {
	ws, err := s.getActive(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.edits.Clear(ctx, ws.ID); err != nil {
		return nil, fmt.Errorf("clearing edits: %w", err)
	}
	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		WorkspaceID:  ws.ID,
		ActivityType: activity.TypeEditsDiscarded,
		Summary:      "discarded pending edits",
		FetchSeq:     ws.AppliedSeq,
	})
	snap, _, err := s.load(ctx, ws)
	return snap, err
}

func (s *Service) getActive(ctx context.Context, tenantID, id string) (*Workspace, error) {
	ws, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if ws.Status == StatusClosed {
		return nil, ErrWorkspaceClosed
	}
	return ws, nil
}

// load reads the stored records and builds the working snapshot.
func (s *Service) load(ctx context.Context, ws *Workspace) (*Snapshot, []PendingEdit, error) {
	store, err := s.workspaces.LoadRecords(ctx, ws.TenantID, ws.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading records: %w", err)
	}
	edits, err := s.edits.List(ctx, ws.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading edits: %w", err)
	}
	selection, err := s.selections.List(ctx, ws.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading selection: %w", err)
	}
	snap, _ := replay(ws, store, edits, selection)
	return snap, edits, nil
}

// build is load for a freshly fetched store; it also reports edits that no
// longer apply.
func (s *Service) build(ctx context.Context, ws *Workspace, store tasking.Store) (*Snapshot, []int64, error) {
	edits, err := s.edits.List(ctx, ws.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading edits: %w", err)
	}
	selection, err := s.selections.List(ctx, ws.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading selection: %w", err)
	}
	snap, stale := replay(ws, store, edits, selection)
	return snap, stale, nil
}

func replay(ws *Workspace, store tasking.Store, edits []PendingEdit, selection []tasking.ID) (*Snapshot, []int64) {
	rows, warnings := tasking.BuildRows(store)
	rows = tasking.RefreshAggregates(rows)

	var stale []int64
	for _, e := range edits {
		next, err := tasking.ApplyEdit(rows, e.Edit)
		if err == nil {
			err = submittable(rows, e.Edit)
		}
		if err != nil {
			warnings = append(warnings, tasking.Warning{
				RecordID: e.Edit.RowID,
				Reason:   fmt.Sprintf("pending edit no longer applies: %v", err),
			})
			stale = append(stale, e.ID)
			continue
		}
		rows = next
	}

	idx := tasking.Index(rows)
	kept := make([]tasking.ID, 0, len(selection))
	for _, id := range selection {
		if _, ok := idx[id]; ok {
			kept = append(kept, id)
		}
	}

	return &Snapshot{
		WorkspaceID: ws.ID,
		View:        ws.View,
		FetchSeq:    ws.AppliedSeq,
		Rows:        rows,
		Selection:   kept,
		Dirty:       dirtyIDs(rows),
		Warnings:    warnings,
	}, stale
}

// submittable reports whether a successful Apply could ever carry edit, so
// that its journal entry gets confirmed. rows are the rows before the edit.
func submittable(rows []tasking.Row, edit tasking.Edit) error {
	switch edit.Field {
	case tasking.FieldAssignee:
		if edit.Value == "" {
			return fmt.Errorf("%w: empty assignee on row %s", ErrNotSubmittable, edit.RowID)
		}
		pos, ok := tasking.Index(rows)[edit.RowID]
		if ok && rows[pos].IsImage() && len(tasking.Children(rows, edit.RowID)) == 0 {
			return fmt.Errorf("%w: image %s has no areas to assign", ErrNotSubmittable, edit.RowID)
		}
		return nil
	case tasking.FieldPriority:
		if edit.Value == "" {
			return fmt.Errorf("%w: empty priority on row %s", ErrNotSubmittable, edit.RowID)
		}
		return nil
	default:
		return fmt.Errorf("%w: field %s", ErrNotSubmittable, edit.Field)
	}
}

// confirmedEdits returns the journal entries fully covered by the payloads
// the backend accepted.
func confirmedEdits(edits []PendingEdit, rows []tasking.Row, assigned, priorized map[tasking.ID]bool) []int64 {
	var done []int64
	for _, e := range edits {
		switch e.Edit.Field {
		case tasking.FieldAssignee:
			if assigned[e.Edit.RowID] {
				done = append(done, e.ID)
				continue
			}
			children := tasking.Children(rows, e.Edit.RowID)
			if len(children) == 0 {
				continue
			}
			all := true
			for _, c := range children {
				if !assigned[rows[c].ID] {
					all = false
					break
				}
			}
			if all {
				done = append(done, e.ID)
			}
		case tasking.FieldPriority:
			if priorized[e.Edit.RowID] {
				done = append(done, e.ID)
			}
		}
	}
	return done
}

func dirtyIDs(rows []tasking.Row) []tasking.ID {
	ids := []tasking.ID{}
	for _, r := range rows {
		if r.Dirty {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (s *Service) logActivity(ctx context.Context, tenantID string, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("activity log failed", "workspace_id", entry.WorkspaceID, "type", entry.ActivityType, "error", err)
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
