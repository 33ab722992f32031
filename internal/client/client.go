// Package client is the Go client for the timeline HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crossingdelta/timeline/pkg/api"
)

// Session is the signed-in identity a client acts as. It is created by Login
// and handed explicitly to everything that talks to the API.
type Session struct {
	Server string          `json:"server"`
	Token  string          `json:"token"`
	User   api.UserSummary `json:"user"`
}

// Valid reports whether the session carries a token
func (s Session) Valid() bool {
	return s.Token != ""
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client calls the timeline API
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates an unauthenticated client. A nil httpClient uses a 15s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// WithSession returns a copy of c that sends the session's token
func (c *Client) WithSession(s Session) *Client {
	cp := *c
	cp.token = s.Token
	if s.Server != "" {
		cp.baseURL = strings.TrimRight(s.Server, "/")
	}
	return &cp
}

// Login exchanges credentials for a session
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var out api.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", api.LoginRequest{Username: username, Password: password}, &out); err != nil {
		return Session{}, err
	}
	return Session{Server: c.baseURL, Token: out.Token, User: out.User}, nil
}

// ListTasks returns the tenant's tasks ordered by start date
func (c *Client) ListTasks(ctx context.Context) ([]api.Task, error) {
	var out []api.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTask creates a task
func (c *Client) CreateTask(ctx context.Context, req api.CreateTaskRequest) (api.Task, error) {
	var out api.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", req, &out)
	return out, err
}

// UpdateTask updates the present fields of a task
func (c *Client) UpdateTask(ctx context.Context, id int64, req api.UpdateTaskRequest) (api.Task, error) {
	var out api.Task
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(id, 10), req, &out)
	return out, err
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
