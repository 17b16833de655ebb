package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/metrics"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
)

type registerRequest struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank,min=6,maxbytes=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type loginResponse struct {
	Token           string `json:"token"`
	ExpiresInMillis int64  `json:"expiresInMillis"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.auth.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		var dup *common.DuplicateCredentialError
		if errors.As(err, &dup) {
			s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeDuplicate)
		} else {
			s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeFailure)
		}
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeSuccess)
	_ = writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeFailure)
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeSuccess)
	_ = writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, ExpiresInMillis: res.ExpiresIn.Milliseconds()})
}
