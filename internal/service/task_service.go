package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/observability/metrics"
	"github.com/crossingdelta/timeline/internal/security/audit"
)

// TaskListCache holds each tenant's ordered task list between writes.
// Generation changes on every Invalidate; Set drops the list when the
// generation it was read under is no longer current.
type TaskListCache interface {
	Get(ctx context.Context, tenant domain.Tenant) ([]*domain.Task, bool)
	Generation(ctx context.Context, tenant domain.Tenant) (int64, bool)
	Set(ctx context.Context, tenant domain.Tenant, gen int64, tasks []*domain.Task)
	Invalidate(ctx context.Context, tenant domain.Tenant)
}

var errNoTenant = errors.New("principal carries no tenant")

// TaskService implements the tenant-scoped task operations. The tenant always
// comes from the verified principal, never from request data.
type TaskService struct {
	repo   domain.TaskRepository
	cache  TaskListCache
	audit  *audit.Logger
	logger *slog.Logger
	tracer trace.Tracer
}

// NewTaskService creates a task service. cache may be nil.
func NewTaskService(repo domain.TaskRepository, cache TaskListCache, auditLog *audit.Logger, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &TaskService{
		repo:   repo,
		cache:  cache,
		audit:  auditLog,
		logger: logger,
		tracer: otel.Tracer("github.com/crossingdelta/timeline/internal/service"),
	}
}

func (s *TaskService) start(ctx context.Context, op string, p domain.Principal) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "TaskService."+op, trace.WithAttributes(
		attribute.String("tenant", string(p.Tenant)),
		attribute.Int64("account.id", p.AccountID),
	))
	return ctx, span, time.Now()
}

func (s *TaskService) finish(span trace.Span, op string, started time.Time, err error) {
	metrics.ObserveTaskOperation(op, resultLabel(err), time.Since(started))
	if err != nil && resultLabel(err) == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// List returns the tenant's tasks ordered by start date
func (s *TaskService) List(ctx context.Context, p domain.Principal) (tasks []*domain.Task, err error) {
	ctx, span, started := s.start(ctx, "list", p)
	defer func() { s.finish(span, "list", started, err) }()

	if p.Tenant == "" {
		return nil, errNoTenant
	}

	var gen int64
	cacheable := false
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, p.Tenant); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		// read before the store so a write landing mid-read voids the Set
		gen, cacheable = s.cache.Generation(ctx, p.Tenant)
	}

	tasks, err = s.repo.ListByTenant(ctx, p.Tenant)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if cacheable {
		s.cache.Set(ctx, p.Tenant, gen, tasks)
	}
	return tasks, nil
}

// Create stores a new task, applying defaults for omitted optional fields
func (s *TaskService) Create(ctx context.Context, p domain.Principal, in domain.NewTask) (task *domain.Task, err error) {
	ctx, span, started := s.start(ctx, "create", p)
	defer func() { s.finish(span, "create", started, err) }()

	if p.Tenant == "" {
		return nil, errNoTenant
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	task = &domain.Task{
		Name:      in.Name,
		Start:     in.Start,
		End:       in.End,
		Type:      domain.DefaultTaskType,
		AccountID: p.AccountID,
	}
	if in.Progress != nil {
		task.Progress = *in.Progress
	}
	if in.Type != nil && *in.Type != "" {
		task.Type = *in.Type
	}
	if in.IsDisabled != nil {
		task.IsDisabled = *in.IsDisabled
	}
	if in.Styles != nil {
		task.Styles = *in.Styles
	}

	if err := s.repo.Create(ctx, p.Tenant, task); err != nil {
		s.audit.LogTaskChange(ctx, p, "create", 0, "failed", "")
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.invalidate(ctx, p.Tenant)
	s.audit.LogTaskChange(ctx, p, "create", task.ID, "success", task.Name)
	span.SetAttributes(attribute.Int64("task.id", task.ID))
	return task, nil
}

// Update merges the present fields of patch into the tenant's task.
// A task of another tenant is reported as domain.ErrNotFound.
func (s *TaskService) Update(ctx context.Context, p domain.Principal, id int64, patch domain.TaskPatch) (task *domain.Task, err error) {
	ctx, span, started := s.start(ctx, "update", p)
	defer func() { s.finish(span, "update", started, err) }()
	span.SetAttributes(attribute.Int64("task.id", id))

	if p.Tenant == "" {
		return nil, errNoTenant
	}

	task, err = s.repo.GetByID(ctx, p.Tenant, id)
	if err != nil {
		return nil, err
	}
	task.Apply(patch)

	if err := s.repo.Update(ctx, p.Tenant, task); err != nil {
		s.audit.LogTaskChange(ctx, p, "update", id, "failed", "")
		return nil, err
	}
	s.invalidate(ctx, p.Tenant)
	s.audit.LogTaskChange(ctx, p, "update", id, "success", "")
	return task, nil
}

// Delete removes the tenant's task. Deleting a missing or foreign id
// returns domain.ErrNotFound every time.
func (s *TaskService) Delete(ctx context.Context, p domain.Principal, id int64) (err error) {
	ctx, span, started := s.start(ctx, "delete", p)
	defer func() { s.finish(span, "delete", started, err) }()
	span.SetAttributes(attribute.Int64("task.id", id))

	if p.Tenant == "" {
		return errNoTenant
	}

	if err := s.repo.Delete(ctx, p.Tenant, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s.audit.LogTaskChange(ctx, p, "delete", id, "failed", "")
		return fmt.Errorf("delete task: %w", err)
	}
	s.invalidate(ctx, p.Tenant)
	s.audit.LogTaskChange(ctx, p, "delete", id, "success", "")
	return nil
}

func (s *TaskService) invalidate(ctx context.Context, tenant domain.Tenant) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenant)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
