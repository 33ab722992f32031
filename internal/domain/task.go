package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTaskType is applied when a task is created without a type
const DefaultTaskType = "task"

// Styles holds the optional bar colors of a task
type Styles struct {
	ProgressColor           string `json:"progressColor,omitempty"`
	ProgressSelectedColor   string `json:"progressSelectedColor,omitempty"`
	BackgroundColor         string `json:"backgroundColor,omitempty"`
	BackgroundSelectedColor string `json:"backgroundSelectedColor,omitempty"`
}

// IsZero reports whether no color is set
func (s Styles) IsZero() bool {
	return s == Styles{}
}

// Task is one scheduled entry on a tenant's timeline
type Task struct {
	ID         int64
	Name       string
	Start      time.Time
	End        time.Time
	Progress   int
	Type       string
	IsDisabled bool
	Tenant     Tenant // Stamped from the session at creation, never changed
	Styles     Styles
	AccountID  int64 // Account that created the task
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTask carries the fields a caller may supply when creating a task.
// Optional fields are nil when the caller omitted them.
type NewTask struct {
	Name       string
	Start      time.Time
	End        time.Time
	Progress   *int
	Type       *string
	IsDisabled *bool
	Styles     *Styles
}

// Validate checks the required fields
func (n NewTask) Validate() error {
	var missing []string
	if strings.TrimSpace(n.Name) == "" {
		missing = append(missing, "name")
	}
	if n.Start.IsZero() {
		missing = append(missing, "start")
	}
	if n.End.IsZero() {
		missing = append(missing, "end")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// TaskPatch is a partial update. A nil field is absent and keeps the stored value;
// a non-nil field overwrites it even when it holds a zero value.
type TaskPatch struct {
	Name       *string
	Start      *time.Time
	End        *time.Time
	Progress   *int
	Type       *string
	IsDisabled *bool
	Styles     *Styles
}

// Apply merges the present fields of p into t
func (t *Task) Apply(p TaskPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Start != nil {
		t.Start = *p.Start
	}
	if p.End != nil {
		t.End = *p.End
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.IsDisabled != nil {
		t.IsDisabled = *p.IsDisabled
	}
	if p.Styles != nil {
		t.Styles = *p.Styles
	}
}

// TaskRepository defines data access for tasks. Every method requires the
// caller's tenant; a task owned by another tenant is reported as ErrNotFound.
type TaskRepository interface {
	ListByTenant(ctx context.Context, tenant Tenant) ([]*Task, error)
	Create(ctx context.Context, tenant Tenant, task *Task) error
	GetByID(ctx context.Context, tenant Tenant, id int64) (*Task, error)
	Update(ctx context.Context, tenant Tenant, task *Task) error
	Delete(ctx context.Context, tenant Tenant, id int64) error
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp.
// Calendar dates are read as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a valid date", ErrValidation, s)
}
