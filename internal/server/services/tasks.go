package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tasktracker/internal/dbx"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
)

// TaskService applies the ownership rule on top of the task repository.
// Every lookup by id reports not-found before forbidden.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

// Create stores a task owned by p. A nil status means PENDING.
func (s *TaskService) Create(ctx context.Context, p auth.Principal, title, description string, status *models.TaskStatus) (*models.Task, error) {
	task := &models.Task{
		Title:       title,
		Description: description,
		Status:      models.TaskStatusPending,
		UserID:      p.ID,
	}
	if status != nil {
		task.Status = *status
	}

	t, err := s.repomanager.Tasks(s.db).Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return t, nil
}

// List returns p's tasks, optionally filtered by status.
func (s *TaskService) List(ctx context.Context, p auth.Principal, status *models.TaskStatus) ([]*models.Task, error) {
	return s.repomanager.Tasks(s.db).ListByUser(ctx, p.ID, status)
}

func (s *TaskService) Get(ctx context.Context, p auth.Principal, id int64) (*models.Task, error) {
	t, err := s.repomanager.Tasks(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(p, t.UserID); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies patch to the task under a row lock.
func (s *TaskService) Update(ctx context.Context, p auth.Principal, id int64, patch models.TaskPatch) (*models.Task, error) {
	var updated *models.Task
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)

		t, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Authorize(p, t.UserID); err != nil {
			return err
		}

		patch.Apply(t)
		updated, err = repo.Update(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, p auth.Principal, id int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)

		t, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.Authorize(p, t.UserID); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}
