package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
)

type requestIDKey struct{}

// WithRequestID stores the request id so audit lines can be correlated
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, tenant domain.Tenant, accountID int64, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", string(tenant)),
		slog.Int64("account_id", accountID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

// LogLogin records a login attempt. Failed attempts carry no tenant.
func (al *Logger) LogLogin(ctx context.Context, username string, tenant domain.Tenant, accountID int64, status string) {
	al.LogAction(ctx, tenant, accountID, "login", "session", "", status, "username="+username)
}

// LogTaskChange records a create, update or delete on a task
func (al *Logger) LogTaskChange(ctx context.Context, p domain.Principal, action string, taskID int64, status, details string) {
	id := ""
	if taskID != 0 {
		id = strconv.FormatInt(taskID, 10)
	}
	al.LogAction(ctx, p.Tenant, p.AccountID, action, "task", id, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, reason string) {
	al.LogAction(ctx, "", 0, "access_denied", "api", "", "denied", reason)
}
