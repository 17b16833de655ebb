package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// ParseTaskStatus accepts any letter case.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case TaskStatusPending, TaskStatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("Invalid status: %s. Valid values are: PENDING, COMPLETED", s)
	}
}

// Task is always owned by exactly one user (UserID).
type Task struct {
	ID          int64
	Title       string
	Description string
	Status      TaskStatus
	UserID      int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch carries the fields of a partial update; nil means unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}
