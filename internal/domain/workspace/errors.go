package workspace

import "errors"

var (
	// ErrWorkspaceNotFound indicates the workspace doesn't exist.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrWorkspaceClosed indicates the workspace was closed.
	ErrWorkspaceClosed = errors.New("workspace closed")
	// ErrInvalidView indicates an unknown view kind.
	ErrInvalidView = errors.New("invalid view")
	// ErrInvalidInput indicates invalid workspace input.
	ErrInvalidInput = errors.New("invalid workspace input")
	// ErrStaleFetch indicates a fetch response superseded by a newer fetch.
	ErrStaleFetch = errors.New("fetch superseded by a newer refresh")
	// ErrSubmissionFailed indicates the backend rejected part of a submission.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrNotSubmittable indicates an edit no submission payload could carry.
	ErrNotSubmittable = errors.New("edit cannot be submitted")
)
