// Package timeline holds the client-side task list and the controller that
// keeps it in step with the server.
package timeline

import (
	"strconv"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/pkg/api"
)

// DefaultStyles is the bar styling applied to new tasks and to tasks stored
// without colors.
var DefaultStyles = domain.Styles{
	ProgressColor:           "#667eea",
	ProgressSelectedColor:   "#667eea",
	BackgroundColor:         "#e5e7eb",
	BackgroundSelectedColor: "#d1d5db",
}

// TaskData is the displayable part of a task
type TaskData struct {
	Name       string
	Start      time.Time
	End        time.Time
	Progress   int
	Type       string
	IsDisabled bool
	Styles     domain.Styles
}

// ClientTask is either a RealTask backed by a server record or a
// PlaceholderTask that only exists locally. The set is closed.
type ClientTask interface {
	// Key is unique across both kinds and stable for display purposes
	Key() string
	Data() TaskData
	clientTask()
}

// RealTask is a task the server knows by ID
type RealTask struct {
	ID int64
	TaskData
}

func (t RealTask) Key() string    { return strconv.FormatInt(t.ID, 10) }
func (t RealTask) Data() TaskData { return t.TaskData }
func (RealTask) clientTask()      {}

// PlaceholderTask is sample data shown while the tenant has no tasks. It is
// never sent to the server.
type PlaceholderTask struct {
	Sentinel string
	TaskData
}

func (t PlaceholderTask) Key() string    { return t.Sentinel }
func (t PlaceholderTask) Data() TaskData { return t.TaskData }
func (PlaceholderTask) clientTask()      {}

// Placeholders is the fixed sample set shown for an empty timeline
func Placeholders() []ClientTask {
	return []ClientTask{
		PlaceholderTask{
			Sentinel: "default-1",
			TaskData: TaskData{
				Name:     "Sample project",
				Start:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				End:      time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
				Progress: 30,
				Type:     domain.DefaultTaskType,
				Styles:   DefaultStyles,
			},
		},
	}
}

// fromAPI maps a server task, filling in type and styles when they are missing
func fromAPI(t api.Task) RealTask {
	data := TaskData{
		Name:       t.Name,
		Start:      t.Start,
		End:        t.End,
		Progress:   t.Progress,
		Type:       t.Type,
		IsDisabled: t.IsDisabled,
		Styles:     domain.Styles(t.Styles),
	}
	if data.Type == "" {
		data.Type = domain.DefaultTaskType
	}
	if data.Styles.IsZero() {
		data.Styles = DefaultStyles
	}
	return RealTask{ID: t.ID, TaskData: data}
}

func onlyPlaceholders(tasks []ClientTask) bool {
	for _, t := range tasks {
		if _, ok := t.(PlaceholderTask); !ok {
			return false
		}
	}
	return true
}
