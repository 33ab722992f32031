package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/pkg/database"
)

// SQLTaskRepository implements domain.TaskRepository. Every statement filters
// or writes the company column with the tenant passed by the caller.
type SQLTaskRepository struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLTaskRepository creates a new task repository
func NewSQLTaskRepository(pool *database.ConnectionPool, logger *slog.Logger) *SQLTaskRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLTaskRepository{pool: pool, logger: logger}
}

const taskColumns = `id, name, start_unixms, end_unixms, progress, type, is_disabled, company, styles, account_id, created_at_unixms, updated_at_unixms`

// ListByTenant returns the tenant's tasks ordered by start date
func (r *SQLTaskRepository) ListByTenant(ctx context.Context, tenant domain.Tenant) ([]*domain.Task, error) {
	query := r.pool.Rebind(`
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE company = ?
		ORDER BY start_unixms ASC, id ASC
	`)

	rows, err := r.pool.GetDB().QueryContext(ctx, query, string(tenant))
	if err != nil {
		r.logger.Error("failed to list tasks",
			slog.String("tenant_id", string(tenant)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			r.logger.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Create inserts task under tenant and fills in the assigned ID and timestamps
func (r *SQLTaskRepository) Create(ctx context.Context, tenant domain.Tenant, task *domain.Task) error {
	styles, err := json.Marshal(task.Styles)
	if err != nil {
		return fmt.Errorf("failed to marshal styles: %w", err)
	}

	now := time.UnixMilli(time.Now().UnixMilli()).UTC()
	query := r.pool.Rebind(`
		INSERT INTO tasks (name, start_unixms, end_unixms, progress, type, is_disabled, company, styles, account_id, created_at_unixms, updated_at_unixms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err = r.pool.GetDB().QueryRowContext(ctx, query,
		task.Name,
		task.Start.UnixMilli(),
		task.End.UnixMilli(),
		task.Progress,
		task.Type,
		task.IsDisabled,
		string(tenant),
		string(styles),
		nullableID(task.AccountID),
		now.UnixMilli(),
		now.UnixMilli(),
	).Scan(&task.ID)
	if err != nil {
		r.logger.Error("failed to create task",
			slog.String("tenant_id", string(tenant)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.Tenant = tenant
	task.Start = time.UnixMilli(task.Start.UnixMilli()).UTC()
	task.End = time.UnixMilli(task.End.UnixMilli()).UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves a task by ID within tenant
func (r *SQLTaskRepository) GetByID(ctx context.Context, tenant domain.Tenant, id int64) (*domain.Task, error) {
	query := r.pool.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND company = ?`)

	task, err := scanTask(r.pool.GetDB().QueryRowContext(ctx, query, id, string(tenant)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

// Update writes every mutable field of task. The tenant and owning account never change.
func (r *SQLTaskRepository) Update(ctx context.Context, tenant domain.Tenant, task *domain.Task) error {
	styles, err := json.Marshal(task.Styles)
	if err != nil {
		return fmt.Errorf("failed to marshal styles: %w", err)
	}

	now := time.UnixMilli(time.Now().UnixMilli()).UTC()
	query := r.pool.Rebind(`
		UPDATE tasks
		SET name = ?, start_unixms = ?, end_unixms = ?, progress = ?, type = ?, is_disabled = ?, styles = ?, updated_at_unixms = ?
		WHERE id = ? AND company = ?
	`)

	result, err := r.pool.GetDB().ExecContext(ctx, query,
		task.Name,
		task.Start.UnixMilli(),
		task.End.UnixMilli(),
		task.Progress,
		task.Type,
		task.IsDisabled,
		string(styles),
		now.UnixMilli(),
		task.ID,
		string(tenant),
	)
	if err != nil {
		r.logger.Error("failed to update task",
			slog.Int64("task_id", task.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", task.ID, domain.ErrNotFound)
	}

	task.UpdatedAt = now
	return nil
}

// Delete removes a task within tenant
func (r *SQLTaskRepository) Delete(ctx context.Context, tenant domain.Tenant, id int64) error {
	query := r.pool.Rebind(`DELETE FROM tasks WHERE id = ? AND company = ?`)

	result, err := r.pool.GetDB().ExecContext(ctx, query, id, string(tenant))
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CountByTenant returns the number of stored tasks per tenant. It is the only
// query that spans tenants and is used for metrics only.
func (r *SQLTaskRepository) CountByTenant(ctx context.Context) (map[domain.Tenant]int, error) {
	rows, err := r.pool.GetDB().QueryContext(ctx, `SELECT company, COUNT(*) FROM tasks GROUP BY company`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Tenant]int)
	for rows.Next() {
		var company string
		var n int
		if err := rows.Scan(&company, &n); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[domain.Tenant(company)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	task := &domain.Task{}
	var (
		startMs, endMs       int64
		createdMs, updatedMs int64
		company, styles      string
		accountID            sql.NullInt64
	)

	err := row.Scan(
		&task.ID,
		&task.Name,
		&startMs,
		&endMs,
		&task.Progress,
		&task.Type,
		&task.IsDisabled,
		&company,
		&styles,
		&accountID,
		&createdMs,
		&updatedMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	if styles != "" {
		if err := json.Unmarshal([]byte(styles), &task.Styles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal styles of task %d: %w", task.ID, err)
		}
	}

	task.Start = time.UnixMilli(startMs).UTC()
	task.End = time.UnixMilli(endMs).UTC()
	task.Tenant = domain.Tenant(company)
	task.AccountID = accountID.Int64
	task.CreatedAt = time.UnixMilli(createdMs).UTC()
	task.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return task, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
