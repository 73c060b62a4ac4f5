// Package repository holds the persistence errors shared by the sqlite
// repositories and the services that consume them.
package repository

import "errors"

var (
	// ErrNotFound is returned when a workspace, record or entry is absent
	// for the requesting tenant.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write loses a compare-and-set, such as a
	// fetch result arriving after a newer fetch was issued, or a duplicate id.
	ErrConflict = errors.New("conflict: superseded by a concurrent write")

	// ErrForeignKeyViolation is returned when a row references a missing workspace.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
