package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/repository"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return &DB{conn}, mock
}

func TestWorkspaceRepository_ReplaceRecordsRollsBackOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkspaceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE workspaces").
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), "w1", "tenant1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("w1", "tenant1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.ReplaceRecords(context.Background(), "tenant1", "w1", 1, tasking.Store{})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestWorkspaceRepository_ReplaceRecordsInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkspaceRepository(db)
	store := tasking.Store{"1": {ID: "1", Kind: tasking.KindImage, Name: "IMG_A"}}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE workspaces").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM workspace_records").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectPrepare("INSERT INTO workspace_records").
		ExpectExec().
		WithArgs("w1", "1", "image", sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.ReplaceRecords(context.Background(), "tenant1", "w1", 2, store)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to insert record 1")
}

func TestWorkspaceRepository_IssueFetchExecFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkspaceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE workspaces").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, err := repo.IssueFetch(context.Background(), "tenant1", "w1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to issue fetch")
}

func TestEditRepository_AppendMapsForeignKeyViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEditRepository(db)

	mock.ExpectExec("INSERT INTO pending_edits").
		WillReturnError(errors.New("constraint failed: FOREIGN KEY constraint failed (787)"))

	_, err := repo.Append(context.Background(), "w1", tasking.Edit{RowID: "1", Field: tasking.FieldAssignee, Value: "bob"})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestSelectionRepository_ListQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSelectionRepository(db)

	mock.ExpectQuery("SELECT row_id FROM selections").
		WithArgs("w1").
		WillReturnError(errors.New("no such table: selections"))

	_, err := repo.List(context.Background(), "w1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to list selection")
}
