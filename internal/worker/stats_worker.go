package worker

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/observability/metrics"
)

// TaskCounter counts stored tasks across tenants
type TaskCounter interface {
	CountByTenant(ctx context.Context) (map[domain.Tenant]int, error)
}

// StatsWorker periodically publishes store gauges: tasks per tenant and
// database pool usage.
type StatsWorker struct {
	counter  TaskCounter
	dbStats  func() sql.DBStats
	logger   *slog.Logger
	interval time.Duration
}

// NewStatsWorker creates a stats worker. dbStats may be nil.
func NewStatsWorker(counter TaskCounter, dbStats func() sql.DBStats, logger *slog.Logger, interval time.Duration) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsWorker{
		counter:  counter,
		dbStats:  dbStats,
		logger:   logger,
		interval: interval,
	}
}

// Start collects once and then on every tick until ctx is done
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))
	w.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.collect(ctx)
		}
	}
}

func (w *StatsWorker) collect(ctx context.Context) {
	if w.dbStats != nil {
		s := w.dbStats()
		metrics.SetDBConnections(s.OpenConnections, s.InUse, s.Idle)
	}

	counts, err := w.counter.CountByTenant(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("failed to count tasks", slog.String("error", err.Error()))
		}
		return
	}

	byTenant := make(map[string]int, len(counts))
	total := 0
	for tenant, n := range counts {
		byTenant[string(tenant)] = n
		total += n
	}
	metrics.SetTasksStored(byTenant)
	w.logger.Debug("published store stats", slog.Int("tenants", len(counts)), slog.Int("tasks", total))
}
