// Package httpapi exposes a service.Service over a local JSON/HTTP API.
// The task shape matches the REST remote source, so one tasker can serve as
// another's remote.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tasker/internal/backend/restapi"
	"tasker/internal/logging"
	"tasker/internal/observability"
	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// StatusClientClosedRequest is reported when the caller went away.
const StatusClientClosedRequest = 499

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// Server exposes a service.Service as a JSON API for local UI processes.
type Server struct {
	svc     service.Service
	metrics *observability.Metrics
	log     *slog.Logger
}

// New returns a server for svc. Nil metrics and logger are allowed.
func New(svc service.Service, metrics *observability.Metrics, logger *slog.Logger) *Server {
	return &Server{
		svc:     svc,
		metrics: metrics,
		log:     logging.OrDiscard(logger),
	}
}

// Router returns the chi handler serving /healthz, /metrics and /v1/tasks.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/v1/tasks", s.handleListTasks)
	r.Post("/v1/tasks", s.handleCreateTask)
	r.Get("/v1/tasks/{id}", s.handleGetTask)
	r.Put("/v1/tasks/{id}", s.handleUpdateTask)
	r.Delete("/v1/tasks/{id}", s.handleDeleteTask)

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("http api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.GetTasks(r.Context())
	if err != nil {
		s.respondTaskError(w, r, err)
		return
	}
	out := make([]restapi.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, restapi.FromService(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.GetTaskByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondTaskError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, restapi.FromService(task))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	task, err := s.svc.CreateTask(r.Context(), req.Title, req.Description)
	if err != nil {
		s.respondTaskError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, restapi.FromService(task))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req restapi.Task
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ID != "" && req.ID != id {
		respondError(w, http.StatusBadRequest, "invalid_request", "body id does not match path")
		return
	}
	req.ID = id
	task, err := s.svc.UpdateTask(r.Context(), req.Service())
	if err != nil {
		s.respondTaskError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, restapi.FromService(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondTaskError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondTaskError(w http.ResponseWriter, r *http.Request, err error) {
	kind := taskerr.KindOf(err)
	status := StatusForKind(kind)
	if status >= 500 {
		s.log.Warn("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "err", err)
	}
	message := err.Error()
	var e *taskerr.Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	respondError(w, status, string(kind), message)
}

// StatusForKind maps an error kind to the HTTP status the API reports.
func StatusForKind(kind taskerr.Kind) int {
	switch kind {
	case taskerr.NotFound:
		return http.StatusNotFound
	case taskerr.Conflict:
		return http.StatusBadRequest
	case taskerr.Unauthorized:
		return http.StatusUnauthorized
	case taskerr.Timeout:
		return http.StatusGatewayTimeout
	case taskerr.Unreachable:
		return http.StatusServiceUnavailable
	case taskerr.ServerFault:
		return http.StatusBadGateway
	case taskerr.Cancelled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
