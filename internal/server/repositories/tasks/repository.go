package tasks

import (
	"context"

	"github.com/dmitrijs2005/tasktracker/internal/server/models"
)

// Repository persists tasks. Single-row reads return common.ErrorNotFound
// when the id is unknown. Ownership is not checked here.
type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Task, error)
	// ListByUser returns the user's tasks ordered by id; a nil status means all.
	ListByUser(ctx context.Context, userID int64, status *models.TaskStatus) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
}
