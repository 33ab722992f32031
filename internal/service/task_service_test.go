package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/repository"
)

type memTaskRepo struct {
	nextID int64
	tasks  map[int64]domain.Task
	lists  int
	fail   error
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[int64]domain.Task{}}
}

func (m *memTaskRepo) ListByTenant(_ context.Context, tenant domain.Tenant) ([]*domain.Task, error) {
	m.lists++
	if m.fail != nil {
		return nil, m.fail
	}
	out := []*domain.Task{}
	for _, t := range m.tasks {
		if t.Tenant == tenant {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
func (m *memTaskRepo) Create(_ context.Context, tenant domain.Tenant, t *domain.Task) error {
	if m.fail != nil {
		return m.fail
	}
	m.nextID++
	t.ID = m.nextID
	t.Tenant = tenant
	m.tasks[t.ID] = *t
	return nil
}
func (m *memTaskRepo) GetByID(_ context.Context, tenant domain.Tenant, id int64) (*domain.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.Tenant != tenant {
		return nil, fmt.Errorf("task %w", domain.ErrNotFound)
	}
	return &t, nil
}
func (m *memTaskRepo) Update(_ context.Context, tenant domain.Tenant, t *domain.Task) error {
	stored, ok := m.tasks[t.ID]
	if !ok || stored.Tenant != tenant {
		return fmt.Errorf("task %w", domain.ErrNotFound)
	}
	c := *t
	c.Tenant = stored.Tenant
	m.tasks[t.ID] = c
	return nil
}
func (m *memTaskRepo) Delete(_ context.Context, tenant domain.Tenant, id int64) error {
	t, ok := m.tasks[id]
	if !ok || t.Tenant != tenant {
		return fmt.Errorf("task %w", domain.ErrNotFound)
	}
	delete(m.tasks, id)
	return nil
}

type countingCache struct {
	lists       map[domain.Tenant][]*domain.Task
	invalidated []domain.Tenant
}

func (c *countingCache) Get(_ context.Context, tenant domain.Tenant) ([]*domain.Task, bool) {
	l, ok := c.lists[tenant]
	return l, ok
}
func (c *countingCache) Generation(_ context.Context, tenant domain.Tenant) (int64, bool) {
	n := 0
	for _, inv := range c.invalidated {
		if inv == tenant {
			n++
		}
	}
	return int64(n), true
}
func (c *countingCache) Set(ctx context.Context, tenant domain.Tenant, gen int64, tasks []*domain.Task) {
	if cur, _ := c.Generation(ctx, tenant); cur != gen {
		return
	}
	c.lists[tenant] = tasks
}
func (c *countingCache) Invalidate(_ context.Context, tenant domain.Tenant) {
	delete(c.lists, tenant)
	c.invalidated = append(c.invalidated, tenant)
}

var (
	crossing = domain.Principal{AccountID: 1, Username: "admin", Tenant: "CrossingDelta"}
	studio   = domain.Principal{AccountID: 2, Username: "StudioFree", Tenant: "StudioFree"}
)

func date(s string) time.Time {
	d, _ := domain.ParseDate(s)
	return d
}

func ptr[T any](v T) *T { return &v }

func TestCreateAppliesDefaultsAndStampsPrincipal(t *testing.T) {
	repo := newMemTaskRepo()
	s := NewTaskService(repo, nil, nil, nil)

	task, err := s.Create(context.Background(), crossing, domain.NewTask{Name: "Kickoff", Start: date("2025-03-01"), End: date("2025-03-15")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 || task.Progress != 0 || task.Type != "task" || task.IsDisabled || !task.Styles.IsZero() {
		t.Fatalf("defaults not applied: %+v", task)
	}
	if task.Tenant != "CrossingDelta" || task.AccountID != 1 {
		t.Fatalf("tenant/account not stamped: %+v", task)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	repo := newMemTaskRepo()
	s := NewTaskService(repo, nil, nil, nil)

	_, err := s.Create(context.Background(), crossing, domain.NewTask{Name: "Kickoff", Start: date("2025-03-01")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Fatalf("invalid task was stored")
	}
}

func TestUpdateTreatsZeroAsPresent(t *testing.T) {
	repo := newMemTaskRepo()
	s := NewTaskService(repo, nil, nil, nil)
	ctx := context.Background()

	task, err := s.Create(ctx, crossing, domain.NewTask{
		Name: "Design", Start: date("2025-01-01"), End: date("2025-02-01"),
		Progress: ptr(50), IsDisabled: ptr(true),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := s.Update(ctx, crossing, task.ID, domain.TaskPatch{Progress: ptr(0), IsDisabled: ptr(false)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Progress != 0 || updated.IsDisabled {
		t.Fatalf("zero values not applied: %+v", updated)
	}
	if updated.Name != "Design" || !updated.Start.Equal(date("2025-01-01")) || !updated.End.Equal(date("2025-02-01")) {
		t.Fatalf("absent fields changed: %+v", updated)
	}
}

func TestForeignTenantIsNotFound(t *testing.T) {
	repo := newMemTaskRepo()
	s := NewTaskService(repo, nil, nil, nil)
	ctx := context.Background()

	task, _ := s.Create(ctx, crossing, domain.NewTask{Name: "Secret", Start: date("2025-01-01"), End: date("2025-01-02")})

	if _, err := s.Update(ctx, studio, task.ID, domain.TaskPatch{Name: ptr("x")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign update: expected not found, got %v", err)
	}
	if err := s.Delete(ctx, studio, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign delete: expected not found, got %v", err)
	}
	list, _ := s.List(ctx, studio)
	if len(list) != 0 {
		t.Fatalf("foreign list leaked %d tasks", len(list))
	}
	if _, ok := repo.tasks[task.ID]; !ok {
		t.Fatalf("foreign delete removed the task")
	}
}

func TestDeleteMissingTwice(t *testing.T) {
	s := NewTaskService(newMemTaskRepo(), nil, nil, nil)
	for i := 0; i < 2; i++ {
		if err := s.Delete(context.Background(), crossing, 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("attempt %d: expected not found, got %v", i, err)
		}
	}
}

func TestListUsesCacheAndWritesInvalidate(t *testing.T) {
	repo := newMemTaskRepo()
	cache := &countingCache{lists: map[domain.Tenant][]*domain.Task{}}
	s := NewTaskService(repo, cache, nil, nil)
	ctx := context.Background()

	if _, err := s.List(ctx, crossing); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := s.List(ctx, crossing); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lists != 1 {
		t.Fatalf("expected second list to be served from cache, repo listed %d times", repo.lists)
	}

	if _, err := s.Create(ctx, crossing, domain.NewTask{Name: "Build", Start: date("2025-04-01"), End: date("2025-04-30")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "CrossingDelta" {
		t.Fatalf("create did not invalidate tenant cache: %v", cache.invalidated)
	}

	list, _ := s.List(ctx, crossing)
	if len(list) != 1 || repo.lists != 2 {
		t.Fatalf("expected fresh list after write, got %d tasks (%d repo lists)", len(list), repo.lists)
	}
}

func TestListRequiresTenant(t *testing.T) {
	s := NewTaskService(newMemTaskRepo(), nil, nil, nil)
	if _, err := s.List(context.Background(), domain.Principal{AccountID: 1}); err == nil {
		t.Fatalf("expected error for principal without tenant")
	}
}

// stallingRepo parks the first ListByTenant after it has read the store
type stallingRepo struct {
	*memTaskRepo
	listed  chan struct{}
	release chan struct{}
	stalled bool
}

func (r *stallingRepo) ListByTenant(ctx context.Context, tenant domain.Tenant) ([]*domain.Task, error) {
	tasks, err := r.memTaskRepo.ListByTenant(ctx, tenant)
	if !r.stalled {
		r.stalled = true
		close(r.listed)
		<-r.release
	}
	return tasks, err
}

func TestWriteDuringListIsNotMaskedByCache(t *testing.T) {
	base := newMemTaskRepo()
	repo := &stallingRepo{memTaskRepo: base, listed: make(chan struct{}), release: make(chan struct{})}
	s := NewTaskService(repo, repository.NewMemoryTaskCache(time.Minute), nil, nil)
	ctx := context.Background()

	task, err := s.Create(ctx, crossing, domain.NewTask{Name: "Kickoff", Start: date("2025-03-01"), End: date("2025-03-15")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan []*domain.Task)
	go func() {
		list, _ := s.List(ctx, crossing)
		done <- list
	}()

	<-repo.listed
	if _, err := s.Update(ctx, crossing, task.ID, domain.TaskPatch{Progress: ptr(75)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(repo.release)
	if inFlight := <-done; len(inFlight) != 1 {
		t.Fatalf("in-flight list returned %d tasks", len(inFlight))
	}

	list, err := s.List(ctx, crossing)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Progress != 75 {
		t.Fatalf("list after update served old data: %+v", list)
	}
}
