package httpapi

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error(r.Context(), "panic in handler",
					"panic", rec, "stack", string(debug.Stack()), "request_id", requestIDFromContext(r.Context()))
				writeProblem(w, r, http.StatusInternalServerError, "Internal server error", "Unknown internal server error.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// assignRequestID keeps a client supplied X-Request-ID or generates one.
func (s *HTTPServer) assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start).String(),
			"request_id", requestIDFromContext(r.Context()),
		)
	})
}

// unmatchedRoute labels requests no route template matched.
const unmatchedRoute = "unmatched"

// instrument records request counts and latency by route template, so
// /api/tasks/1 and /api/tasks/2 share a series.
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := unmatchedRoute
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordHTTPRequest(r.Method, route, rw.status, time.Since(start))
	})
}

// bearerToken extracts <t> from "Bearer <t>". The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// authenticate is the request authenticator for the /api subtree. It never
// writes to the store; every failure is answered with the same 401.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := requestIDFromContext(ctx)

		token, ok := bearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			s.logger.Info(ctx, "request unauthenticated", "reason", "missing or malformed authorization header", "request_id", reqID)
			s.writeError(w, r, common.ErrUnauthenticated)
			return
		}

		subject, err := s.auth.ValidateToken(token)
		if err != nil {
			outcome := metrics.OutcomeInvalid
			if errors.Is(err, common.ErrTokenExpired) {
				outcome = metrics.OutcomeExpired
			}
			s.metrics.RecordAuthEvent(metrics.EventToken, outcome)
			s.logger.Info(ctx, "request unauthenticated", "reason", err.Error(), "request_id", reqID)
			s.writeError(w, r, common.ErrUnauthenticated)
			return
		}

		p, err := s.auth.ResolvePrincipal(ctx, subject)
		if err != nil {
			if errors.Is(err, common.ErrUnauthenticated) {
				s.metrics.RecordAuthEvent(metrics.EventToken, metrics.OutcomeInvalid)
				s.logger.Info(ctx, "request unauthenticated", "reason", "unknown subject", "user_id", subject, "request_id", reqID)
			}
			s.writeError(w, r, err)
			return
		}

		s.metrics.RecordAuthEvent(metrics.EventToken, metrics.OutcomeSuccess)
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, p)))
	})
}
