package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/security/middleware"
	"github.com/crossingdelta/timeline/pkg/api"
)

// TaskService is the tenant-scoped task store behind the task routes
type TaskService interface {
	List(ctx context.Context, p domain.Principal) ([]*domain.Task, error)
	Create(ctx context.Context, p domain.Principal, in domain.NewTask) (*domain.Task, error)
	Update(ctx context.Context, p domain.Principal, id int64, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, p domain.Principal, id int64) error
}

// TasksHandler serves /api/tasks. Every route expects SessionGuard in front.
type TasksHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTasksHandler creates the task handlers
func NewTasksHandler(tasks TaskService, logger *slog.Logger) *TasksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TasksHandler{tasks: tasks, logger: logger}
}

func (h *TasksHandler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.Tenant == "" {
		h.logger.Error("task route reached without a verified session", slog.String("path", r.URL.Path))
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return domain.Principal{}, false
	}
	return p, true
}

// List handles GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch tasks")
		return
	}

	out := make([]api.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toWire(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req api.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name == "" || req.Start == "" || req.End == "" {
		writeError(w, http.StatusBadRequest, "Name, start, and end dates are required")
		return
	}

	in := domain.NewTask{
		Name:       req.Name,
		Progress:   req.Progress,
		Type:       req.Type,
		IsDisabled: req.IsDisabled,
		Styles:     stylesFromWire(req.Styles),
	}
	var err error
	if in.Start, err = domain.ParseDate(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.End, err = domain.ParseDate(req.End); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.Create(r.Context(), p, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, toWire(task))
}

// Update handles PUT /api/tasks/{id}
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, ok := taskID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	var req api.UpdateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	patch, err := patchFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.Update(r.Context(), p, id, patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, toWire(task))
}

// Delete handles DELETE /api/tasks/{id}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, ok := taskID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	if err := h.tasks.Delete(r.Context(), p, id); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to delete task")
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "task deleted"})
}

// taskID parses the {id} path value. A malformed id is treated as not found.
func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// patchFromRequest keeps the original partial-update rule: empty strings are
// absent, while progress and isDisabled are present whenever they are sent.
func patchFromRequest(req api.UpdateTaskRequest) (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Progress:   req.Progress,
		IsDisabled: req.IsDisabled,
		Styles:     stylesFromWire(req.Styles),
	}
	if req.Name != nil && *req.Name != "" {
		patch.Name = req.Name
	}
	if req.Type != nil && *req.Type != "" {
		patch.Type = req.Type
	}
	for _, f := range []struct {
		name string
		in   *string
		out  **time.Time
	}{
		{"start", req.Start, &patch.Start},
		{"end", req.End, &patch.End},
	} {
		if f.in == nil || *f.in == "" {
			continue
		}
		t, err := domain.ParseDate(*f.in)
		if err != nil {
			return domain.TaskPatch{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = &t
	}
	return patch, nil
}

// toWire converts a stored task to its JSON form
func toWire(t *domain.Task) api.Task {
	return api.Task{
		ID:         t.ID,
		Name:       t.Name,
		Start:      t.Start.UTC(),
		End:        t.End.UTC(),
		Progress:   t.Progress,
		Type:       t.Type,
		IsDisabled: t.IsDisabled,
		Styles:     api.Styles(t.Styles),
	}
}

func stylesFromWire(s *api.Styles) *domain.Styles {
	if s == nil {
		return nil
	}
	d := domain.Styles(*s)
	return &d
}
