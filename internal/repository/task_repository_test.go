package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/pkg/database"
)

func newTestPool(t *testing.T) *database.ConnectionPool {
	t.Helper()
	cfg := &database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "tasks.sqlite")}
	pool, err := database.NewConnectionPool(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

func TestTaskRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	accounts := NewSQLAccountRepository(pool, nil)
	repo := NewSQLTaskRepository(pool, nil)

	owner := &domain.Account{Username: "admin", Email: "admin@crossingdelta.com", PasswordHash: "x", Company: "CrossingDelta"}
	if err := accounts.Create(ctx, owner); err != nil {
		t.Fatalf("create account: %v", err)
	}

	task := &domain.Task{
		Name:      "Design",
		Start:     day("2025-01-01"),
		End:       day("2025-02-01"),
		Progress:  50,
		Type:      "task",
		Styles:    domain.Styles{ProgressColor: "#667eea"},
		AccountID: owner.ID,
	}
	if err := repo.Create(ctx, "CrossingDelta", task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	got, err := repo.GetByID(ctx, "CrossingDelta", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Name != "Design" || got.Progress != 50 || !got.Start.Equal(day("2025-01-01")) {
		t.Fatalf("unexpected task %+v", got)
	}
	if got.Styles.ProgressColor != "#667eea" || got.Tenant != "CrossingDelta" || got.AccountID != owner.ID {
		t.Fatalf("styles/tenant/account not round-tripped: %+v", got)
	}

	got.Progress = 0
	if err := repo.Update(ctx, "CrossingDelta", got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.GetByID(ctx, "CrossingDelta", task.ID)
	if again.Progress != 0 || again.Name != "Design" {
		t.Fatalf("expected progress 0 and unchanged name, got %+v", again)
	}

	if err := repo.Delete(ctx, "CrossingDelta", task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "CrossingDelta", task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTaskRepositoryTenantIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLTaskRepository(newTestPool(t), nil)

	task := &domain.Task{Name: "Secret", Start: day("2025-01-01"), End: day("2025-01-02"), Type: "task"}
	if err := repo.Create(ctx, "CrossingDelta", task); err != nil {
		t.Fatalf("create: %v", err)
	}

	foreign, err := repo.ListByTenant(ctx, "StudioFree")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("expected no tasks for other tenant, got %d", len(foreign))
	}

	if _, err := repo.GetByID(ctx, "StudioFree", task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign get, got %v", err)
	}

	task.Name = "Hijacked"
	if err := repo.Update(ctx, "StudioFree", task); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign update, got %v", err)
	}
	if err := repo.Delete(ctx, "StudioFree", task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign delete, got %v", err)
	}

	own, _ := repo.GetByID(ctx, "CrossingDelta", task.ID)
	if own.Name != "Secret" {
		t.Fatalf("foreign update leaked through: %+v", own)
	}
}

func TestTaskRepositoryListOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLTaskRepository(newTestPool(t), nil)

	for _, tc := range []struct {
		name  string
		start string
	}{
		{"Launch", "2025-06-01"},
		{"Kickoff", "2025-03-01"},
		{"Build", "2025-04-15"},
	} {
		task := &domain.Task{Name: tc.name, Start: day(tc.start), End: day(tc.start).AddDate(0, 0, 7), Type: "task"}
		if err := repo.Create(ctx, "CrossingDelta", task); err != nil {
			t.Fatalf("create %s: %v", tc.name, err)
		}
	}

	tasks, err := repo.ListByTenant(ctx, "CrossingDelta")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Kickoff", "Build", "Launch"}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i, name := range want {
		if tasks[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, tasks[i].Name)
		}
	}
}

func TestTaskRepositoryCountByTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLTaskRepository(newTestPool(t), nil)

	for _, tenant := range []domain.Tenant{"CrossingDelta", "CrossingDelta", "StudioFree"} {
		task := &domain.Task{Name: "t", Start: day("2025-01-01"), End: day("2025-01-02"), Type: "task"}
		if err := repo.Create(ctx, tenant, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := repo.CountByTenant(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["CrossingDelta"] != 2 || counts["StudioFree"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestAccountRepositoryLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLAccountRepository(newTestPool(t), nil)

	acc := &domain.Account{Username: "StudioFree", Email: "admin@free.com", PasswordHash: "hash", Company: "StudioFree"}
	if err := repo.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByUsername(ctx, "StudioFree")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != acc.ID || got.Company != "StudioFree" {
		t.Fatalf("unexpected account %+v", got)
	}

	if _, err := repo.GetByUsername(ctx, "studiofree"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("username lookup must be case-sensitive, got %v", err)
	}

	dup := &domain.Account{Username: "StudioFree", Email: "other@free.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, dup); err == nil {
		t.Fatalf("expected unique violation for duplicate username")
	}
}

func TestMemoryTaskCacheIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTaskCache(time.Minute)

	tasks := []*domain.Task{{ID: 1, Name: "Design"}}
	gen, _ := c.Generation(ctx, "CrossingDelta")
	c.Set(ctx, "CrossingDelta", gen, tasks)
	tasks[0].Name = "mutated"

	got, ok := c.Get(ctx, "CrossingDelta")
	if !ok || got[0].Name != "Design" {
		t.Fatalf("expected cached copy, got %+v (ok=%v)", got, ok)
	}

	if _, ok := c.Get(ctx, "StudioFree"); ok {
		t.Fatalf("expected miss for other tenant")
	}

	c.Invalidate(ctx, "CrossingDelta")
	if _, ok := c.Get(ctx, "CrossingDelta"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestMemoryTaskCacheDropsListReadBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTaskCache(time.Minute)

	gen, ok := c.Generation(ctx, "CrossingDelta")
	if !ok {
		t.Fatalf("memory cache always has a generation")
	}
	c.Invalidate(ctx, "CrossingDelta")
	c.Set(ctx, "CrossingDelta", gen, []*domain.Task{{ID: 1, Progress: 0}})
	if _, ok := c.Get(ctx, "CrossingDelta"); ok {
		t.Fatalf("list read before the invalidation was cached")
	}

	// other tenants keep their own generation
	other, _ := c.Generation(ctx, "StudioFree")
	c.Set(ctx, "StudioFree", other, []*domain.Task{{ID: 2}})
	if _, ok := c.Get(ctx, "StudioFree"); !ok {
		t.Fatalf("unrelated tenant was not cached")
	}

	fresh, _ := c.Generation(ctx, "CrossingDelta")
	c.Set(ctx, "CrossingDelta", fresh, []*domain.Task{{ID: 1, Progress: 75}})
	got, ok := c.Get(ctx, "CrossingDelta")
	if !ok || got[0].Progress != 75 {
		t.Fatalf("fresh list not cached: %+v (ok=%v)", got, ok)
	}
}
