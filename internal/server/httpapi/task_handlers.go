package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/gorilla/mux"
)

type createTaskRequest struct {
	Title       string  `json:"title" validate:"notblank,max=100"`
	Description string  `json:"description" validate:"notblank,max=500"`
	Status      *string `json:"status"`
}

// updateTaskRequest is a partial update; absent fields keep their value.
// id and userId in the body are ignored.
type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitnil,notblank,max=100"`
	Description *string `json:"description" validate:"omitnil,notblank,max=500"`
	Status      *string `json:"status"`
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	UserID      int64     `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func parseStatus(raw *string) (*models.TaskStatus, error) {
	if raw == nil {
		return nil, nil
	}
	st, err := models.ParseTaskStatus(*raw)
	if err != nil {
		return nil, common.NewValidationError("", err.Error())
	}
	return &st, nil
}

func taskID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError("id", fmt.Sprintf("invalid task id %q", raw))
	}
	return id, nil
}

// principal returns the caller attached by authenticate.
func (s *HTTPServer) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrUnauthenticated)
	}
	return p, ok
}

func (s *HTTPServer) writeTaskError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeProblem(w, r, http.StatusNotFound, fmt.Sprintf("Task not found with id: %d", id), "The requested task does not exist")
	case errors.Is(err, common.ErrForbidden):
		p, _ := auth.PrincipalFromContext(r.Context())
		s.logger.Warn(r.Context(), "foreign task access denied", "task_id", id, "user_id", p.ID,
			"request_id", requestIDFromContext(r.Context()))
		writeProblem(w, r, http.StatusForbidden, fmt.Sprintf("Unauthorized access to task with id: %d", id), "You do not have permission to access this task")
	default:
		s.writeError(w, r, err)
	}
}

func (s *HTTPServer) createTask(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tasks.Create(r.Context(), p, req.Title, req.Description, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "task created", "task_id", t.ID, "user_id", p.ID)
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", t.ID))
	_ = writeJSON(w, http.StatusCreated, toTaskResponse(t))
}

func (s *HTTPServer) listTasks(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	var rawStatus *string
	if q := r.URL.Query(); q.Has("status") {
		v := q.Get("status")
		rawStatus = &v
	}
	status, err := parseStatus(rawStatus)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.tasks.List(r.Context(), p, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	_ = writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) getTask(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tasks.Get(r.Context(), p, id)
	if err != nil {
		s.writeTaskError(w, r, id, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *HTTPServer) updateTask(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tasks.Update(r.Context(), p, id, models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
	})
	if err != nil {
		s.writeTaskError(w, r, id, err)
		return
	}

	s.logger.Info(r.Context(), "task updated", "task_id", t.ID, "user_id", p.ID)
	_ = writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *HTTPServer) deleteTask(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.tasks.Delete(r.Context(), p, id); err != nil {
		s.writeTaskError(w, r, id, err)
		return
	}

	s.logger.Info(r.Context(), "task deleted", "task_id", id, "user_id", p.ID)
	w.WriteHeader(http.StatusNoContent)
}
