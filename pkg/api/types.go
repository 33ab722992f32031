// Package api holds the JSON request and response bodies shared by the
// HTTP handlers and the Go client.
package api

import "time"

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserSummary is the public view of an account
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Company  string `json:"company"`
}

// LoginResponse contains the session token and account summary
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// Styles holds the optional bar colors of a task
type Styles struct {
	ProgressColor           string `json:"progressColor,omitempty"`
	ProgressSelectedColor   string `json:"progressSelectedColor,omitempty"`
	BackgroundColor         string `json:"backgroundColor,omitempty"`
	BackgroundSelectedColor string `json:"backgroundSelectedColor,omitempty"`
}

// Task is the wire representation of a task
type Task struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Progress   int       `json:"progress"`
	Type       string    `json:"type"`
	IsDisabled bool      `json:"isDisabled"`
	Styles     Styles    `json:"styles"`
}

// CreateTaskRequest is the body of POST /api/tasks. Dates are strings so that
// absence and malformed values can be told apart.
type CreateTaskRequest struct {
	Name       string  `json:"name"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Progress   *int    `json:"progress,omitempty"`
	Type       *string `json:"type,omitempty"`
	IsDisabled *bool   `json:"isDisabled,omitempty"`
	Styles     *Styles `json:"styles,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}; nil fields are absent
type UpdateTaskRequest struct {
	Name       *string `json:"name,omitempty"`
	Start      *string `json:"start,omitempty"`
	End        *string `json:"end,omitempty"`
	Progress   *int    `json:"progress,omitempty"`
	Type       *string `json:"type,omitempty"`
	IsDisabled *bool   `json:"isDisabled,omitempty"`
	Styles     *Styles `json:"styles,omitempty"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
