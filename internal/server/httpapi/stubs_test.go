package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/metrics"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

type stubAuth struct {
	signup   func(ctx context.Context, username, email, password string) (*models.User, error)
	login    func(ctx context.Context, email, password string) (*services.LoginResult, error)
	validate func(token string) (int64, error)
	resolve  func(ctx context.Context, id int64) (auth.Principal, error)
}

func (s *stubAuth) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	return s.signup(ctx, username, email, password)
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return s.login(ctx, email, password)
}

func (s *stubAuth) ValidateToken(token string) (int64, error) {
	if s.validate == nil {
		return 0, common.ErrTokenMalformed
	}
	return s.validate(token)
}

func (s *stubAuth) ResolvePrincipal(ctx context.Context, id int64) (auth.Principal, error) {
	return s.resolve(ctx, id)
}

// acceptingAuth treats "good-token" as user 1 and rejects everything else.
func acceptingAuth() *stubAuth {
	return &stubAuth{
		validate: func(token string) (int64, error) {
			switch token {
			case "good-token":
				return 1, nil
			case "old-token":
				return 0, common.ErrTokenExpired
			default:
				return 0, common.ErrTokenSignature
			}
		},
		resolve: func(_ context.Context, id int64) (auth.Principal, error) {
			return auth.Principal{ID: id, Username: "johndoe", Email: "john@example.com"}, nil
		},
	}
}

type stubTasks struct {
	create func(ctx context.Context, p auth.Principal, title, description string, status *models.TaskStatus) (*models.Task, error)
	list   func(ctx context.Context, p auth.Principal, status *models.TaskStatus) ([]*models.Task, error)
	get    func(ctx context.Context, p auth.Principal, id int64) (*models.Task, error)
	update func(ctx context.Context, p auth.Principal, id int64, patch models.TaskPatch) (*models.Task, error)
	del    func(ctx context.Context, p auth.Principal, id int64) error
}

func (s *stubTasks) Create(ctx context.Context, p auth.Principal, title, description string, status *models.TaskStatus) (*models.Task, error) {
	return s.create(ctx, p, title, description, status)
}

func (s *stubTasks) List(ctx context.Context, p auth.Principal, status *models.TaskStatus) ([]*models.Task, error) {
	return s.list(ctx, p, status)
}

func (s *stubTasks) Get(ctx context.Context, p auth.Principal, id int64) (*models.Task, error) {
	return s.get(ctx, p, id)
}

func (s *stubTasks) Update(ctx context.Context, p auth.Principal, id int64, patch models.TaskPatch) (*models.Task, error) {
	return s.update(ctx, p, id, patch)
}

func (s *stubTasks) Delete(ctx context.Context, p auth.Principal, id int64) error {
	return s.del(ctx, p, id)
}

func newTestServer(t *testing.T, a Authenticator, ts TaskManager) (*HTTPServer, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewHTTPServer("127.0.0.1:0", logging.Nop{}, m, a, ts, time.Second), m
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	var p Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v (body %q)", err, rec.Body.String())
	}
	return p
}

func bearer(token string) []string {
	return []string{common.AuthorizationHeaderName, "Bearer " + token}
}
