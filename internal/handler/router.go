package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/crossingdelta/timeline/internal/observability/metrics"
	"github.com/crossingdelta/timeline/internal/security/audit"
	"github.com/crossingdelta/timeline/internal/security/auth"
	"github.com/crossingdelta/timeline/internal/security/middleware"
	"github.com/crossingdelta/timeline/internal/security/ratelimit"
)

// RouterConfig carries everything the HTTP surface is assembled from
type RouterConfig struct {
	Auth   Authenticator
	Tasks  TaskService
	Tokens *auth.TokenManager

	// TenantLimiter limits /api/tasks* per tenant; LoginThrottle limits login
	// attempts per username. Either may be nil.
	TenantLimiter *ratelimit.Limiter
	LoginThrottle *ratelimit.Limiter

	Audit              *audit.Logger
	Checks             map[string]CheckFunc
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// NewRouter wires routes and middleware:
// otel -> request id -> CORS -> metrics -> mux -> session guard -> rate limit -> content type.
// Anonymous requests get 401 before any content type check.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	auditLog := cfg.Audit
	if auditLog == nil {
		auditLog = audit.NewLogger(log)
	}

	guard := middleware.SessionGuard(cfg.Tokens, auditLog, log)
	jsonOnly := middleware.ValidateJSONContentType(log)
	protect := func(h http.HandlerFunc) http.Handler {
		next := jsonOnly(h)
		if cfg.TenantLimiter != nil {
			next = middleware.RateLimit(cfg.TenantLimiter, log)(next)
		}
		return guard(next)
	}

	tasks := NewTasksHandler(cfg.Tasks, log)
	health := NewHealthHandler(cfg.Checks, log)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", jsonOnly(NewLoginHandler(cfg.Auth, cfg.LoginThrottle, auditLog, log)))
	mux.Handle("GET /api/tasks", protect(tasks.List))
	mux.Handle("POST /api/tasks", protect(tasks.Create))
	mux.Handle("PUT /api/tasks/{id}", protect(tasks.Update))
	mux.Handle("DELETE /api/tasks/{id}", protect(tasks.Delete))
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	var root http.Handler = metrics.HTTPMetricsMiddleware(mux)
	root = middleware.CORS(cfg.CORSAllowedOrigins)(root)
	root = middleware.RequestID(log)(root)
	return otelhttp.NewHandler(root, "timeline")
}
