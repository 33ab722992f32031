package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/observability/metrics"
	"github.com/crossingdelta/timeline/internal/security/audit"
	"github.com/crossingdelta/timeline/internal/security/ratelimit"
	"github.com/crossingdelta/timeline/internal/service"
	"github.com/crossingdelta/timeline/pkg/api"
)

// Authenticator verifies credentials and issues session tokens
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*service.LoginResult, error)
}

// LoginHandler handles POST /api/auth/login
type LoginHandler struct {
	auth     Authenticator
	throttle *ratelimit.Limiter
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewLoginHandler creates a new login handler. throttle may be nil.
func NewLoginHandler(auth Authenticator, throttle *ratelimit.Limiter, auditLog *audit.Logger, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &LoginHandler{
		auth:     auth,
		throttle: throttle,
		audit:    auditLog,
		logger:   logger,
	}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if h.throttle != nil && !h.throttle.Allow("login:"+req.Username) {
		metrics.ObserveLogin("throttled")
		h.logger.Warn("login throttled", slog.String("username", req.Username))
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	res, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.ObserveLogin("invalid")
			h.audit.LogLogin(r.Context(), req.Username, "", 0, "denied")
			writeError(w, http.StatusBadRequest, domain.ErrInvalidCredentials.Error())
			return
		}
		metrics.ObserveLogin("error")
		h.logger.Error("login failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	metrics.ObserveLogin("ok")
	h.audit.LogLogin(r.Context(), res.Account.Username, res.Account.Company, res.Account.ID, "success")

	writeJSON(w, http.StatusOK, api.LoginResponse{
		Token: res.Token,
		User: api.UserSummary{
			ID:       res.Account.ID,
			Username: res.Account.Username,
			Email:    res.Account.Email,
			Company:  string(res.Account.Company),
		},
	})
}
