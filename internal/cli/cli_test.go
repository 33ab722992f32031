package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crossingdelta/timeline/internal/client"
	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/pkg/api"
)

// taskServer is a single-tenant stand-in for the timeline API
type taskServer struct {
	mu     sync.Mutex
	tasks  []api.Task
	nextID int64
}

func (s *taskServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "admin" || req.Password != "admin!" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.LoginResponse{
			Token: "tok",
			User:  api.UserSummary{ID: 1, Username: "admin", Email: "admin@crossingdelta.com", Company: "CrossingDelta"},
		})
	})
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			h(w, r)
		}
	}
	mux.HandleFunc("GET /api/tasks", authed(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(append([]api.Task{}, s.tasks...))
	}))
	mux.HandleFunc("POST /api/tasks", authed(func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateTaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		start, _ := domain.ParseDate(req.Start)
		end, _ := domain.ParseDate(req.End)
		s.nextID++
		t := api.Task{ID: s.nextID, Name: req.Name, Start: start, End: end, Type: *req.Type, Styles: *req.Styles}
		if req.Progress != nil {
			t.Progress = *req.Progress
		}
		s.tasks = append(s.tasks, t)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(t)
	}))
	mux.HandleFunc("PUT /api/tasks/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var req api.UpdateTaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for i := range s.tasks {
			t := &s.tasks[i]
			if t.ID != id {
				continue
			}
			if req.Name != nil {
				t.Name = *req.Name
			}
			if req.Start != nil {
				t.Start, _ = domain.ParseDate(*req.Start)
			}
			if req.End != nil {
				t.End, _ = domain.ParseDate(*req.End)
			}
			if req.Progress != nil {
				t.Progress = *req.Progress
			}
			_ = json.NewEncoder(w).Encode(t)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Task not found"})
	}))
	mux.HandleFunc("DELETE /api/tasks/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for i, t := range s.tasks {
			if t.ID == id {
				s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
				_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "task deleted"})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Task not found"})
	}))
	return mux
}

// cliEnv points the CLI at srv through a config file in a temp dir
type cliEnv struct {
	t          *testing.T
	configPath string
	session    string
}

func newCLIEnv(t *testing.T, server string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	session := filepath.Join(dir, "state", "session.json")
	configPath := filepath.Join(dir, "config.yaml")
	yaml := "server: " + server + "\nsession_file: " + session + "\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{t: t, configPath: configPath, session: session}
}

func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestLoginSavesPrivateSession(t *testing.T) {
	srv := httptest.NewServer((&taskServer{}).handler())
	defer srv.Close()
	env := newCLIEnv(t, srv.URL)

	out, err := env.run("admin!\n", "login", "-u", "admin")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as admin (CrossingDelta)") {
		t.Fatalf("unexpected output %q", out)
	}

	info, err := os.Stat(env.session)
	if err != nil {
		t.Fatalf("session not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode %v", info.Mode().Perm())
	}
	s, err := LoadSession(env.session)
	if err != nil || s.Token != "tok" || s.Server != srv.URL {
		t.Fatalf("unexpected session %+v err=%v", s, err)
	}

	who := env.mustRun("whoami")
	if !strings.Contains(who, "admin@crossingdelta.com") {
		t.Fatalf("whoami missing email: %q", who)
	}

	env.mustRun("logout")
	if _, err := env.run("", "whoami"); err == nil {
		t.Fatalf("whoami succeeded after logout")
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer((&taskServer{}).handler())
	defer srv.Close()
	env := newCLIEnv(t, srv.URL)

	_, err := env.run("", "login", "-u", "admin", "-p", "wrong")
	if !client.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected 400 from server, got %v", err)
	}
	if _, statErr := os.Stat(env.session); statErr == nil {
		t.Fatalf("session saved after failed login")
	}
}

func TestTaskCommands(t *testing.T) {
	ts := &taskServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()
	env := newCLIEnv(t, srv.URL)
	env.mustRun("login", "-u", "admin", "-p", "admin!")

	out := env.mustRun("tasks", "list")
	if !strings.Contains(out, "default-1 (sample)") || !strings.Contains(out, "Sample project") {
		t.Fatalf("expected placeholder for empty list:\n%s", out)
	}

	if _, err := env.run("", "tasks", "delete", "default-1"); err == nil || !strings.Contains(err.Error(), "cannot be deleted") {
		t.Fatalf("expected placeholder delete refusal, got %v", err)
	}
	if _, err := env.run("", "tasks", "edit", "default-1", "--progress", "5"); err == nil || !strings.Contains(err.Error(), "cannot be edited") {
		t.Fatalf("expected placeholder edit refusal, got %v", err)
	}

	out = env.mustRun("tasks", "add", "--name", "Kickoff", "--start", "2025-03-01", "--end", "2025-03-15", "--progress", "20")
	if !strings.Contains(out, "Created task 1: Kickoff") {
		t.Fatalf("unexpected add output %q", out)
	}

	out = env.mustRun("tasks", "edit", "1", "--progress", "0")
	if !strings.Contains(out, "Kickoff 2025-03-01..2025-03-15 0%") {
		t.Fatalf("unexpected edit output %q", out)
	}

	out = env.mustRun("tasks", "list")
	if strings.Contains(out, "sample") || !strings.Contains(out, "Kickoff") {
		t.Fatalf("unexpected list:\n%s", out)
	}

	if _, err := env.run("", "tasks", "add", "--name", "x", "--start", "2025-01-01", "--end", "2025-01-02", "--progress", "150"); err == nil {
		t.Fatalf("out of range progress accepted")
	}

	env.mustRun("tasks", "delete", "1")
	if len(ts.tasks) != 0 {
		t.Fatalf("task not deleted on server")
	}
	if _, err := env.run("", "tasks", "delete", "1"); err == nil {
		t.Fatalf("deleting a missing task succeeded")
	}
}

func TestServerFlagOverridesConfig(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	if err := SaveSession(env.session, client.Session{Server: "http://127.0.0.1:1", Token: "tok"}); err != nil {
		t.Fatal(err)
	}

	ts := &taskServer{tasks: []api.Task{{ID: 4, Name: "Remote", Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Type: "task"}}}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	out := env.mustRun("--server", srv.URL, "tasks", "list")
	if !strings.Contains(out, "Remote") {
		t.Fatalf("--server not honored:\n%s", out)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TIMELINE_SERVER", "http://example.test:9000")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server != "http://example.test:9000" {
		t.Fatalf("env override ignored: %q", cfg.Server)
	}
}
