package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timeline_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	taskOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_task_operations_total",
		Help: "Count of task store operations by operation and result",
	}, []string{"operation", "result"})

	taskOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timeline_task_operation_duration_seconds",
		Help:    "Duration of task store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_task_cache_lookups_total",
		Help: "Count of task list cache lookups by backend and result",
	}, []string{"backend", "result"})

	tasksStored = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timeline_tasks_stored",
		Help: "Number of stored tasks per tenant",
	}, []string{"tenant"})

	dbConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timeline_db_connections",
		Help: "Database pool connections by state",
	}, []string{"state"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveTaskOperation records one list/create/update/delete call and its outcome
// (ok, not_found, invalid, error).
func ObserveTaskOperation(operation, result string, duration time.Duration) {
	taskOperations.WithLabelValues(operation, result).Inc()
	taskOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveLogin counts a login attempt
func ObserveLogin(result string) {
	logins.WithLabelValues(result).Inc()
}

// ObserveCache counts a task list cache lookup, or a write dropped as stale
func ObserveCache(backend, result string) {
	cacheLookups.WithLabelValues(backend, result).Inc()
}

// SetTasksStored replaces the per-tenant task counts
func SetTasksStored(counts map[string]int) {
	tasksStored.Reset()
	for tenant, n := range counts {
		tasksStored.WithLabelValues(tenant).Set(float64(n))
	}
}

// SetDBConnections records the pool's open, in-use and idle connections
func SetDBConnections(open, inUse, idle int) {
	dbConnections.WithLabelValues("open").Set(float64(open))
	dbConnections.WithLabelValues("in_use").Set(float64(inUse))
	dbConnections.WithLabelValues("idle").Set(float64(idle))
}
