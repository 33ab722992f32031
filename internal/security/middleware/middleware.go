package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/security/audit"
	"github.com/crossingdelta/timeline/internal/security/auth"
	"github.com/crossingdelta/timeline/internal/security/ratelimit"
)

type TenantContextKey struct{}
type ClaimsContextKey struct{}

// SessionGuard requires a valid bearer token. A missing token is a 401; any
// verification failure is a 403 with the same message whatever the cause.
func SessionGuard(tm *auth.TokenManager, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(log)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err == nil {
				var claims *auth.Claims
				claims, err = tm.ValidateToken(tokenString)
				if err == nil {
					ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
					ctx = context.WithValue(ctx, TenantContextKey{}, domain.Tenant(claims.Company))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			log.Debug("session rejected",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			if errors.Is(err, domain.ErrMissingToken) {
				auditLog.LogDenied(r.Context(), "missing token")
				WriteError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
				return
			}
			auditLog.LogDenied(r.Context(), "invalid token")
			WriteError(w, http.StatusForbidden, domain.ErrInvalidToken.Error())
		})
	}
}

// RateLimit limits requests per tenant. It must run inside SessionGuard.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := GetTenantFromContext(r.Context())
			if !limiter.Allow(string(tenant)) {
				log.Warn("rate limit exceeded", slog.String("tenant_id", string(tenant)))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetTenantFromContext(ctx context.Context) domain.Tenant {
	if t, ok := ctx.Value(TenantContextKey{}).(domain.Tenant); ok {
		return t
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// PrincipalFromContext returns the verified identity placed by SessionGuard
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	claims := GetClaimsFromContext(ctx)
	if claims == nil {
		return domain.Principal{}, false
	}
	return claims.Principal(), true
}

// WriteError writes a {"error": message} body
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
