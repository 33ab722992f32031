package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/infrastructure/redis"
	"github.com/crossingdelta/timeline/internal/observability/metrics"
	"github.com/crossingdelta/timeline/internal/reliability/circuitbreaker"
	"github.com/crossingdelta/timeline/pkg/cache"
)

func taskListKey(tenant domain.Tenant) string {
	return "tasks:" + string(tenant)
}

func taskGenKey(tenant domain.Tenant) string {
	return "taskgen:" + string(tenant)
}

func cloneTasks(tasks []*domain.Task) []*domain.Task {
	out := make([]*domain.Task, len(tasks))
	for i, t := range tasks {
		c := *t
		out[i] = &c
	}
	return out
}

// MemoryTaskCache keeps each tenant's task list in process memory
type MemoryTaskCache struct {
	items *cache.Cache[[]*domain.Task]
	ttl   time.Duration

	mu   sync.Mutex // orders Set against Invalidate
	gens map[domain.Tenant]int64
}

// NewMemoryTaskCache creates an in-process task list cache
func NewMemoryTaskCache(ttl time.Duration) *MemoryTaskCache {
	return &MemoryTaskCache{
		items: cache.New[[]*domain.Task](),
		ttl:   ttl,
		gens:  map[domain.Tenant]int64{},
	}
}

func (c *MemoryTaskCache) Get(_ context.Context, tenant domain.Tenant) ([]*domain.Task, bool) {
	tasks, ok := c.items.Get(taskListKey(tenant))
	metrics.ObserveCache("memory", hitLabel(ok))
	if !ok {
		return nil, false
	}
	return cloneTasks(tasks), true
}

func (c *MemoryTaskCache) Generation(_ context.Context, tenant domain.Tenant) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tenant], true
}

// Set stores tasks unless tenant was invalidated after gen was read
func (c *MemoryTaskCache) Set(_ context.Context, tenant domain.Tenant, gen int64, tasks []*domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[tenant] != gen {
		metrics.ObserveCache("memory", "stale")
		return
	}
	c.items.Set(taskListKey(tenant), cloneTasks(tasks), c.ttl)
}

func (c *MemoryTaskCache) Invalidate(_ context.Context, tenant domain.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[tenant]++
	c.items.Delete(taskListKey(tenant))
}

// RedisTaskCache stores each tenant's task list as a JSON blob in Redis.
// Redis errors never fail a request: the breaker opens and callers fall
// through to the store.
type RedisTaskCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRedisTaskCache creates a Redis-backed task list cache
func NewRedisTaskCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisTaskCache {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(3, 1, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("task cache breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &RedisTaskCache{client: client, ttl: ttl, breaker: breaker, logger: logger}
}

// cachedTask mirrors domain.Task with JSON tags so the blob format is stable
type cachedTask struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Progress   int           `json:"progress"`
	Type       string        `json:"type"`
	IsDisabled bool          `json:"isDisabled"`
	Tenant     string        `json:"tenant"`
	Styles     domain.Styles `json:"styles"`
	AccountID  int64         `json:"accountId"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func (c *RedisTaskCache) Get(ctx context.Context, tenant domain.Tenant) ([]*domain.Task, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, taskListKey(tenant))
		if errors.Is(err, redis.ErrMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Debug("task cache read skipped", slog.String("error", err.Error()))
		metrics.ObserveCache("redis", "error")
		return nil, false
	}
	if data == nil {
		metrics.ObserveCache("redis", "miss")
		return nil, false
	}

	var stored []cachedTask
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("discarding corrupt task cache entry",
			slog.String("tenant_id", string(tenant)),
			slog.String("error", err.Error()),
		)
		c.Invalidate(ctx, tenant)
		metrics.ObserveCache("redis", "error")
		return nil, false
	}

	tasks := make([]*domain.Task, 0, len(stored))
	for _, s := range stored {
		tasks = append(tasks, &domain.Task{
			ID:         s.ID,
			Name:       s.Name,
			Start:      s.Start,
			End:        s.End,
			Progress:   s.Progress,
			Type:       s.Type,
			IsDisabled: s.IsDisabled,
			Tenant:     domain.Tenant(s.Tenant),
			Styles:     s.Styles,
			AccountID:  s.AccountID,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	metrics.ObserveCache("redis", "hit")
	return tasks, true
}

// Generation reads the tenant's generation counter. When Redis cannot be
// read the list is not cached at all.
func (c *RedisTaskCache) Generation(ctx context.Context, tenant domain.Tenant) (int64, bool) {
	var gen int64
	err := c.breaker.Execute(func() error {
		data, err := c.client.Get(ctx, taskGenKey(tenant))
		if errors.Is(err, redis.ErrMiss) {
			return nil
		}
		if err != nil {
			return err
		}
		gen, err = strconv.ParseInt(string(data), 10, 64)
		return err
	})
	if err != nil {
		c.logger.Debug("task cache generation unavailable", slog.String("error", err.Error()))
		return 0, false
	}
	return gen, true
}

// Set writes the list in a transaction that aborts if the generation key
// moved away from gen.
func (c *RedisTaskCache) Set(ctx context.Context, tenant domain.Tenant, gen int64, tasks []*domain.Task) {
	stored := make([]cachedTask, 0, len(tasks))
	for _, t := range tasks {
		stored = append(stored, cachedTask{
			ID:         t.ID,
			Name:       t.Name,
			Start:      t.Start,
			End:        t.End,
			Progress:   t.Progress,
			Type:       t.Type,
			IsDisabled: t.IsDisabled,
			Tenant:     string(t.Tenant),
			Styles:     t.Styles,
			AccountID:  t.AccountID,
			CreatedAt:  t.CreatedAt,
			UpdatedAt:  t.UpdatedAt,
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		c.logger.Error("failed to marshal task cache entry", slog.String("error", err.Error()))
		return
	}
	stale := false
	if err := c.breaker.Execute(func() error {
		err := c.client.SetIfCounter(ctx, taskGenKey(tenant), gen, taskListKey(tenant), data, c.ttl)
		if errors.Is(err, redis.ErrConflict) {
			stale = true
			return nil
		}
		return err
	}); err != nil {
		c.logger.Debug("task cache write skipped", slog.String("error", err.Error()))
		return
	}
	if stale {
		metrics.ObserveCache("redis", "stale")
	}
}

// Invalidate bumps the generation before deleting the list, so a Set that
// read the old generation can no longer commit.
func (c *RedisTaskCache) Invalidate(ctx context.Context, tenant domain.Tenant) {
	// Invalidation bypasses the breaker: a stale list must not outlive a write.
	if _, err := c.client.Incr(ctx, taskGenKey(tenant)); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("failed to bump task cache generation",
			slog.String("tenant_id", string(tenant)),
			slog.String("error", err.Error()),
		)
	}
	if err := c.client.Delete(ctx, taskListKey(tenant)); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("failed to invalidate task cache",
			slog.String("tenant_id", string(tenant)),
			slog.String("error", err.Error()),
		)
	}
}

func hitLabel(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}
