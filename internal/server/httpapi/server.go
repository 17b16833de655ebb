// Package httpapi exposes the task tracker over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/metrics"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/services"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Authenticator is the part of services.AuthService the transport needs.
type Authenticator interface {
	Signup(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	ValidateToken(token string) (int64, error)
	ResolvePrincipal(ctx context.Context, userID int64) (auth.Principal, error)
}

// TaskManager is the part of services.TaskService the transport needs.
type TaskManager interface {
	Create(ctx context.Context, p auth.Principal, title, description string, status *models.TaskStatus) (*models.Task, error)
	List(ctx context.Context, p auth.Principal, status *models.TaskStatus) ([]*models.Task, error)
	Get(ctx context.Context, p auth.Principal, id int64) (*models.Task, error)
	Update(ctx context.Context, p auth.Principal, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, p auth.Principal, id int64) error
}

type HTTPServer struct {
	address         string
	auth            Authenticator
	tasks           TaskManager
	logger          logging.Logger
	metrics         *metrics.Metrics
	validate        *validator.Validate
	shutdownTimeout time.Duration
}

func NewHTTPServer(address string, l logging.Logger, m *metrics.Metrics, as Authenticator, ts TaskManager, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:         address,
		auth:            as,
		tasks:           ts,
		logger:          l.With("module", "http_server"),
		metrics:         m,
		validate:        newValidator(),
		shutdownTimeout: shutdownTimeout,
	}
}

// Handler builds the router with the full middleware chain. Recovery,
// request ids and access logs wrap the router itself so unmatched requests
// get them too; mux only runs r.Use middleware on matched routes.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeProblem(w, req, http.StatusNotFound, "No handler found for "+req.Method+" "+req.URL.Path, "The requested resource does not exist")
	}))
	r.MethodNotAllowedHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeProblem(w, req, http.StatusMethodNotAllowed, "Method "+req.Method+" is not supported", "Invalid request method")
	}))
	r.Use(s.instrument)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/login", s.login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.updateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", s.deleteTask).Methods(http.MethodDelete)

	return s.recoverPanics(s.assignRequestID(s.logRequests(r)))
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully within the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *HTTPServer) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
		if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
