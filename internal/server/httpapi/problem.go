package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tasktracker/internal/common"
)

// Problem is the error body of every non-2xx response.
type Problem struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Status      int    `json:"status"`
	Detail      string `json:"detail"`
	Instance    string `json:"instance"`
	Description string `json:"description"`
}

const problemContentType = "application/problem+json"

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail, description string) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:        "about:blank",
		Title:       http.StatusText(status),
		Status:      status,
		Detail:      detail,
		Instance:    r.URL.Path,
		Description: description,
	})
}

// writeError maps err to a status code and problem body. Unknown errors are
// logged and answered with a generic 500 that does not echo err.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dup *common.DuplicateCredentialError
		fe  fieldErrors
		ve  *common.ValidationError
	)

	switch {
	case errors.As(err, &dup):
		writeProblem(w, r, http.StatusConflict, dup.Error(), "A user with this email/username already exists")
	case errors.As(err, &fe):
		writeProblem(w, r, http.StatusBadRequest, "Validation failed", fe.Error())
	case errors.As(err, &ve):
		writeProblem(w, r, http.StatusBadRequest, ve.Error(), "Invalid parameter value provided")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeProblem(w, r, http.StatusUnauthorized, "Bad credentials", "The username or password is incorrect")
	case errors.Is(err, common.ErrUnauthenticated):
		writeProblem(w, r, http.StatusUnauthorized,
			"Full authentication is required to access this resource", "Authentication is required")
	case errors.Is(err, common.ErrForbidden):
		writeProblem(w, r, http.StatusForbidden, "Access denied", "You are not authorized to access this resource")
	case errors.Is(err, common.ErrorNotFound):
		writeProblem(w, r, http.StatusNotFound, "Resource not found", "The requested resource does not exist")
	default:
		s.logger.Error(r.Context(), "request failed", "error", err.Error(), "request_id", requestIDFromContext(r.Context()))
		writeProblem(w, r, http.StatusInternalServerError, "Internal server error", "Unknown internal server error.")
	}
}
