// Package agent wires the validation, processing and formatting pipeline
// behind the HTTP surface.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/kb-agent/internal/domain"
	"github.com/tjfontaine/kb-agent/internal/envelope"
	"github.com/tjfontaine/kb-agent/internal/processor"
	"github.com/tjfontaine/kb-agent/internal/taskstore"
)

// Handler serves the agent's message pipeline and the read-side task
// endpoints.
type Handler struct {
	agentID   string
	validator *envelope.Validator
	formatter *envelope.Formatter
	processor *processor.Processor
	wiki      processor.Strategy
	create    processor.Strategy
	tasks     taskstore.Store // nil when the store failed to initialize
	logger    *slog.Logger
}

// NewHandler creates the agent handler. tasks may be nil; the read-side
// endpoints then answer 503.
func NewHandler(agentID string, proc *processor.Processor, wiki, create processor.Strategy, tasks taskstore.Store, logger *slog.Logger) *Handler {
	return &Handler{
		agentID:   agentID,
		validator: envelope.NewValidator(agentID),
		formatter: envelope.NewFormatter(agentID),
		processor: proc,
		wiki:      wiki,
		create:    create,
		tasks:     tasks,
		logger:    logger,
	}
}

// Routes mounts the handler on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Post("/message", h.HandleMessage)
	r.Get("/health", h.HandleHealth)
	r.Get("/tasks", h.HandleListTasks)
	r.Get("/tasks/{id}", h.HandleGetTask)
}

// HandleMessage is the pipeline entry point: raw JSON in, an envelope of the
// matching variant out. Agent-level failures travel in-band as error
// envelopes with status 200.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return
	}

	writeJSON(w, http.StatusOK, h.Dispatch(r.Context(), body))
}

// HandleHealth synthesizes a legacy health_check envelope and runs it
// through the same pipeline as POST /message.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	msg := map[string]any{
		"message_id": "health-check-api",
		"sender":     "api-server",
		"recipient":  h.agentID,
		"type":       "health_check",
		"timestamp":  domain.Now(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "health check failed"})
		return
	}

	writeJSON(w, http.StatusOK, h.Dispatch(r.Context(), body))
}

// HandleRoot describes the service.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": h.agentID,
		"endpoints": map[string]string{
			"POST /message":   "Handle incoming JSON messages",
			"GET /health":     "Health check endpoint",
			"GET /tasks":      "List tasks, optionally filtered by ?status=",
			"GET /tasks/{id}": "Retrieve a task by id",
		},
	})
}

// HandleListTasks lists stored tasks, optionally filtered by status.
func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "task store not initialized"})
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

// HandleGetTask retrieves one task by id.
func (h *Handler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "task store not initialized"})
		return
	}

	id := chi.URLParam(r, "id")
	task, err := h.tasks.GetTask(r.Context(), id)
	if errors.Is(err, taskstore.ErrTaskNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to get task", slog.String("task_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Dispatch validates a raw message and routes it to the matching operation,
// returning the outbound envelope.
func (h *Handler) Dispatch(ctx context.Context, body []byte) any {
	norm, verr := h.validator.Validate(body)
	if verr != nil {
		h.logger.Warn("message validation failed",
			slog.String("error_code", string(verr.Err.Code)),
			slog.String("message", verr.Err.Message))
		return h.formatter.ValidationError(verr)
	}

	h.logger.Info("message accepted",
		slog.String("variant", string(norm.Variant)),
		slog.String("operation", norm.Operation))

	switch norm.Operation {
	case domain.OpHealthCheck:
		return h.formatter.Health(norm)
	case domain.OpUpdateWiki:
		return h.run(ctx, norm, h.wiki)
	case domain.OpCreateTask:
		return h.run(ctx, norm, h.create)
	default:
		var agentErr *domain.AgentError
		if norm.Variant == domain.VariantLegacy {
			agentErr = domain.ErrUnsupportedTask(norm.Operation)
		} else {
			agentErr = domain.ErrUnsupportedIntent(norm.Operation)
		}
		return h.formatter.TaskError(norm, domain.FailureFrom(agentErr))
	}
}

func (h *Handler) run(ctx context.Context, norm *domain.NormalizedRequest, strategy processor.Strategy) any {
	resp := h.processor.Process(ctx, norm.Request, strategy)
	if resp.Status == domain.StatusSuccess {
		return h.formatter.Success(norm, resp)
	}
	return h.formatter.TaskError(norm, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written; nothing to do but note it.
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
