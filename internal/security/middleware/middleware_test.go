package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/security/audit"
	"github.com/crossingdelta/timeline/internal/security/auth"
	"github.com/crossingdelta/timeline/internal/security/ratelimit"
)

func guarded(tm *auth.TokenManager, seen *string) http.Handler {
	return SessionGuard(tm, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			*seen = "no principal"
			return
		}
		*seen = string(p.Tenant) + "/" + p.Username
		w.WriteHeader(http.StatusOK)
	}))
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rr.Body.String())
	}
	return body["error"]
}

func TestSessionGuardStatuses(t *testing.T) {
	tm := auth.NewTokenManager("secret", "")
	good, err := tm.GenerateToken(1, "admin", "CrossingDelta", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	forged, _ := auth.NewTokenManager("other", "").GenerateToken(1, "admin", "CrossingDelta", time.Hour)

	cases := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "access token required"},
		{"bearer without token", "Bearer ", http.StatusUnauthorized, "access token required"},
		{"wrong scheme", "Basic abc", http.StatusForbidden, "invalid access token"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusForbidden, "invalid access token"},
		{"foreign signature", "Bearer " + forged, http.StatusForbidden, "invalid access token"},
	}
	for _, tc := range cases {
		var seen string
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		guarded(tm, &seen).ServeHTTP(rr, req)

		if rr.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rr.Code)
		}
		if msg := errorBody(t, rr); msg != tc.msg {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.msg, msg)
		}
		if seen != "" {
			t.Fatalf("%s: handler ran", tc.name)
		}
	}

	var seen string
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	rr := httptest.NewRecorder()
	guarded(tm, &seen).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen != "CrossingDelta/admin" {
		t.Fatalf("valid token: status %d, principal %q", rr.Code, seen)
	}
}

func TestRateLimitPerTenant(t *testing.T) {
	tm := auth.NewTokenManager("secret", "")
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	h := SessionGuard(tm, nil, nil)(RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	send := func(tenant string) int {
		token, _ := tm.GenerateToken(1, "u", domain.Tenant(tenant), time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("CrossingDelta"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := send("CrossingDelta"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
	if code := send("StudioFree"); code != http.StatusOK {
		t.Fatalf("other tenant: %d", code)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	var ctxID string
	h := RequestID(nil)(CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = audit.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if id := rr.Header().Get("X-Request-ID"); id == "" || id != ctxID {
		t.Fatalf("request id header %q does not match context %q", id, ctxID)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "PUT") {
		t.Fatalf("PUT missing from allowed methods")
	}

	pre := httptest.NewRequest(http.MethodOptions, "/api/tasks/1", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, pre)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rr.Code)
	}
}

func TestValidateJSONContentType(t *testing.T) {
	h := ValidateJSONContentType(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
