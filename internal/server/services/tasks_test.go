package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = auth.Principal{ID: 1, Username: "johndoe", Email: "john@example.com"}
	stranger = auth.Principal{ID: 2, Username: "jane", Email: "jane@example.com"}
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func ptr[T any](v T) *T { return &v }

func seededTaskService(t *testing.T, db *sql.DB) (*TaskService, *fakeTasksRepo) {
	t.Helper()
	rm := newFakeRepoManager()
	rm.t.put(models.Task{ID: 1, Title: "mine", Description: "d", Status: models.TaskStatusPending, UserID: owner.ID})
	rm.t.put(models.Task{ID: 2, Title: "mine too", Description: "d", Status: models.TaskStatusCompleted, UserID: owner.ID})
	rm.t.put(models.Task{ID: 3, Title: "theirs", Description: "d", Status: models.TaskStatusPending, UserID: stranger.ID})
	return NewTaskService(db, rm), rm.t
}

func TestTaskCreate_StampsOwnerAndDefaultsStatus(t *testing.T) {
	s, _ := seededTaskService(t, nil)

	got, err := s.Create(context.Background(), owner, "Buy milk", "2 liters", nil)
	require.NoError(t, err)

	want := &models.Task{Title: "Buy milk", Description: "2 liters", Status: models.TaskStatusPending, UserID: owner.ID}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(models.Task{}, "ID")); diff != "" {
		t.Fatalf("task mismatch (-want +got):\n%s", diff)
	}

	got, err = s.Create(context.Background(), stranger, "x", "y", ptr(models.TaskStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, stranger.ID, got.UserID)
}

func TestTaskCreate_StoreError(t *testing.T) {
	s, repo := seededTaskService(t, nil)
	repo.err = errors.New("boom")

	_, err := s.Create(context.Background(), owner, "t", "d", nil)
	assert.EqualError(t, err, "error creating task: boom")
}

func TestTaskList_OnlyOwnTasks(t *testing.T) {
	s, _ := seededTaskService(t, nil)

	all, err := s.List(context.Background(), owner, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, task := range all {
		assert.Equal(t, owner.ID, task.UserID)
	}

	done, err := s.List(context.Background(), owner, ptr(models.TaskStatusCompleted))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, int64(2), done[0].ID)
}

func TestTaskGet(t *testing.T) {
	s, _ := seededTaskService(t, nil)
	ctx := context.Background()

	got, err := s.Get(ctx, owner, 1)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)

	_, err = s.Get(ctx, owner, 3)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = s.Get(ctx, owner, 42)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTaskUpdate_PartialPatchInTx(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	s, repo := seededTaskService(t, db)

	got, err := s.Update(context.Background(), owner, 1, models.TaskPatch{Status: ptr(models.TaskStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, owner.ID, got.UserID)
	assert.Equal(t, []int64{1}, repo.lockedIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdate_ForeignAndMissingRollBack(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want error
	}{
		{name: "foreign", id: 3, want: common.ErrForbidden},
		{name: "missing", id: 42, want: common.ErrorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newSQLMockDB(t)
			mock.ExpectBegin()
			mock.ExpectRollback()

			s, repo := seededTaskService(t, db)

			_, err := s.Update(context.Background(), owner, tt.id, models.TaskPatch{Title: ptr("hijack")})
			assert.ErrorIs(t, err, tt.want)
			require.NoError(t, mock.ExpectationsWereMet())

			if task, ok := repo.byID[3]; ok {
				assert.Equal(t, "theirs", task.Title)
			}
		})
	}
}

func TestTaskDelete(t *testing.T) {
	t.Run("own", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		s, repo := seededTaskService(t, db)
		require.NoError(t, s.Delete(context.Background(), owner, 1))
		_, ok := repo.byID[1]
		assert.False(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		s, repo := seededTaskService(t, db)
		assert.ErrorIs(t, s.Delete(context.Background(), owner, 3), common.ErrForbidden)
		_, ok := repo.byID[3]
		assert.True(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		s, _ := seededTaskService(t, db)
		assert.ErrorIs(t, s.Delete(context.Background(), owner, 42), common.ErrorNotFound)
	})
}
