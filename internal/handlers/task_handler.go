package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/middleware"
	"github.com/inaiurai/fleetdispatch/internal/models"
	"github.com/inaiurai/fleetdispatch/internal/pool"
	"github.com/inaiurai/fleetdispatch/internal/services"
)

// TaskStore is the subset of the task pool needed by the handler.
type TaskStore interface {
	Insert(t models.Task) error
	Enumerate() []models.Task
	Len() int
}

// TaskBuilder validates creation payloads and builds tasks.
type TaskBuilder interface {
	Build(ctx context.Context, kind string, payload json.RawMessage) (models.Task, error)
}

// TaskHandler serves /v1/tasks endpoints.
type TaskHandler struct {
	Pool    TaskStore
	Factory TaskBuilder
	Logger  *slog.Logger
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
	Kind   string `json:"kind"`
}

// CreateTask handles POST /v1/tasks.
// Auth -> TaskKindCheck (via middleware) -> Validate Payload -> Insert -> 201.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	rb := middleware.RobotFromCtx(r.Context())
	if rb == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if k := middleware.TaskKindFromCtx(r.Context()); k != "" {
		req.Kind = k
	}
	if len(req.Payload) == 0 {
		http.Error(w, `{"error":"payload is required"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Factory.Build(r.Context(), req.Kind, req.Payload)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		h.Logger.Error("build task", "kind", req.Kind, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if err := h.Pool.Insert(task); err != nil {
		if errors.Is(err, pool.ErrDuplicateID) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "task id already pending", "task_id": task.TaskID().String()})
			return
		}
		h.Logger.Error("insert task", "task_id", task.TaskID(), "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	h.Logger.Info("task added", "task_id", task.TaskID(), "kind", task.Kind(), "submitted_by", rb.ID)
	writeJSON(w, http.StatusCreated, createTaskResponse{
		TaskID: task.TaskID().String(),
		Kind:   task.Kind(),
	})
}

// --- GET /v1/tasks ---

type taskView struct {
	Kind string      `json:"kind"`
	Task models.Task `json:"task"`
}

type listTasksResponse struct {
	Size  int        `json:"size"`
	Tasks []taskView `json:"tasks"`
}

// ListTasks handles GET /v1/tasks: the pending tasks in insertion order.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := h.Pool.Enumerate()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView{Kind: t.Kind(), Task: t})
	}
	writeJSON(w, http.StatusOK, listTasksResponse{Size: len(views), Tasks: views})
}

// --- GET /v1/tasks/{id} ---

// GetTask handles GET /v1/tasks/{id}. Only pending tasks are visible.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	for _, t := range h.Pool.Enumerate() {
		if t.TaskID() == taskID {
			writeJSON(w, http.StatusOK, taskView{Kind: t.Kind(), Task: t})
			return
		}
	}
	http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
}

// --- GET /v1/task-kinds ---

type taskKindInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListTaskKinds handles GET /v1/task-kinds (public, no auth).
func ListTaskKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := []taskKindInfo{
		{Name: models.TaskKindSimple, Description: "visit one room before a deadline"},
		{Name: models.TaskKindCompound, Description: "visit rooms in a fixed order"},
		{Name: models.TaskKindCharging, Description: "dock at a charging station"},
		{Name: models.TaskKindDoor, Description: "check whether a room door is open"},
	}
	writeJSON(w, http.StatusOK, kinds)
}

// --- helpers ---

// extractTaskID parses the task UUID from the URL path /v1/tasks/{id}.
func extractTaskID(r *http.Request) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		raw, _, _ = strings.Cut(strings.TrimPrefix(r.URL.Path, "/v1/tasks/"), "/")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
