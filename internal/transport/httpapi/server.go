package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"

	"signup-agent/internal/application/port/input"
	"signup-agent/internal/application/port/output"
)

// Server is the observer-facing surface: a snapshot endpoint for
// reconnect-and-replay, a live websocket event stream and the resume
// trigger for tasks parked in needs_human. The dashboard consuming it
// lives elsewhere.
type Server struct {
	runner input.TaskRunner
	tasks  output.TaskStore
	bus    output.EventBus
	logger output.LoggerPort
	http   *http.Server
}

type Config struct {
	Addr string
}

func NewServer(cfg Config, runner input.TaskRunner, tasks output.TaskStore, bus output.EventBus, logger output.LoggerPort) *Server {
	s := &Server{
		runner: runner,
		tasks:  tasks,
		bus:    bus,
		logger: logger,
	}

	requestLogger := httplog.NewLogger("signup-agent", httplog.Options{JSON: true, Concise: true})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(requestLogger))

	r.Get("/api/agents/{agentID}/tasks", s.handleListTasks)
	r.Post("/api/agents/{agentID}/tasks/{platform}/resume", s.handleResume)
	r.Get("/ws/events", s.handleEvents)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	tasks, err := s.tasks.ListByAgent(r.Context(), agentID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	type taskDTO struct {
		TaskID           string `json:"taskId"`
		AgentID          string `json:"agentId"`
		Platform         string `json:"platform"`
		Status           string `json:"status"`
		BrowserSessionID string `json:"browserSessionId,omitempty"`
		ErrorMessage     string `json:"errorMessage,omitempty"`
		UpdatedAt        string `json:"updatedAt"`
	}

	dtos := make([]taskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, taskDTO{
			TaskID:           t.ID,
			AgentID:          t.AgentID,
			Platform:         t.Platform,
			Status:           t.Status.String(),
			BrowserSessionID: t.BrowserSessionID,
			ErrorMessage:     t.ErrorMessage,
			UpdatedAt:        t.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": dtos})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	platform := chi.URLParam(r, "platform")

	var body struct {
		MailboxID string `json:"mailboxId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MailboxID == "" {
		s.writeError(w, http.StatusBadRequest, "mailboxId is required")
		return
	}

	task, err := s.tasks.Get(r.Context(), agentID, platform)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	// The resume itself outlives the request: it polls the mailbox and
	// drives the browser. Kick it off and let the caller follow along on
	// the event stream.
	go func() {
		if err := s.runner.ResumeTask(context.Background(), agentID, platform, body.MailboxID); err != nil {
			s.logger.Warn("Resume failed", "agentId", agentID, "platform", platform, "error", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"taskId":   task.ID,
		"platform": platform,
		"status":   "resuming",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
