package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/crossingdelta/timeline/pkg/api"
)

// TaskAPI is the part of the HTTP client the controller needs
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]api.Task, error)
	CreateTask(ctx context.Context, req api.CreateTaskRequest) (api.Task, error)
	UpdateTask(ctx context.Context, id int64, req api.UpdateTaskRequest) (api.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Mode is the state of the interaction surface
type Mode int

const (
	Viewing Mode = iota
	AddEditing
	EditEditing
)

func (m Mode) String() string {
	switch m {
	case AddEditing:
		return "adding"
	case EditEditing:
		return "editing"
	default:
		return "viewing"
	}
}

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Notice is a short message for the user. It is replaced by the next one.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Call performs the network half of an operation. It must not touch the
// controller; its Result is handed back to Apply on the UI loop.
type Call func(ctx context.Context) Result

// Result is the outcome of a Call
type Result interface{ result() }

type loadResult struct {
	tasks []api.Task
	err   error
}

type createResult struct {
	task api.Task
	err  error
}

type updateResult struct {
	id       int64
	fromEdit bool
	task     api.Task
	err      error
}

type deleteResult struct {
	id  int64
	err error
}

func (loadResult) result()   {}
func (createResult) result() {}
func (updateResult) result() {}
func (deleteResult) result() {}

// Controller owns the client's task list. All methods are meant to be called
// from a single goroutine; only the returned Calls may run elsewhere.
// Nothing is changed before the server confirms a mutation, and responses
// are applied in arrival order.
type Controller struct {
	api TaskAPI

	tasks   []ClientTask
	loading bool
	pending int

	mode    Mode
	editing RealTask

	notice    Notice
	hasNotice bool
}

// NewController creates a controller showing the placeholder set until Load completes
func NewController(taskAPI TaskAPI) *Controller {
	return &Controller{api: taskAPI, tasks: Placeholders()}
}

// Tasks returns a copy of the current list
func (c *Controller) Tasks() []ClientTask {
	out := make([]ClientTask, len(c.tasks))
	copy(out, c.tasks)
	return out
}

func (c *Controller) Loading() bool { return c.loading }
func (c *Controller) Mode() Mode    { return c.mode }

// Busy reports whether any mutation is in flight
func (c *Controller) Busy() bool { return c.pending > 0 }

// Editing returns the task behind the edit dialog
func (c *Controller) Editing() (RealTask, bool) {
	return c.editing, c.mode == EditEditing
}

func (c *Controller) Notice() (Notice, bool) { return c.notice, c.hasNotice }

func (c *Controller) ClearNotice() { c.hasNotice = false }

func (c *Controller) info(format string, args ...any) {
	c.notice, c.hasNotice = Notice{Kind: NoticeInfo, Text: fmt.Sprintf(format, args...)}, true
}

func (c *Controller) fail(format string, args ...any) {
	c.notice, c.hasNotice = Notice{Kind: NoticeError, Text: fmt.Sprintf(format, args...)}, true
}

// Do runs call synchronously and applies its result. A nil call is a no-op.
func (c *Controller) Do(ctx context.Context, call Call) {
	if call == nil {
		return
	}
	c.Apply(call(ctx))
}

// Load fetches the tenant's tasks
func (c *Controller) Load() Call {
	c.loading = true
	return func(ctx context.Context) Result {
		tasks, err := c.api.ListTasks(ctx)
		return loadResult{tasks: tasks, err: err}
	}
}

// OpenAdd shows the add dialog
func (c *Controller) OpenAdd() bool {
	if c.mode != Viewing {
		return false
	}
	c.mode = AddEditing
	return true
}

// OpenEdit shows the edit dialog for a real task. Placeholders stay in
// Viewing and raise a notice.
func (c *Controller) OpenEdit(t ClientTask) bool {
	if c.mode != Viewing {
		return false
	}
	switch t := t.(type) {
	case RealTask:
		c.editing = t
		c.mode = EditEditing
		return true
	default:
		c.info("Sample tasks cannot be edited.")
		return false
	}
}

// Cancel closes whichever dialog is open
func (c *Controller) Cancel() {
	c.mode = Viewing
	c.editing = RealTask{}
}

// SubmitAdd validates the add form and returns the create call. The dialog
// stays open until the server confirms.
func (c *Controller) SubmitAdd(form TaskForm) (Call, error) {
	if c.mode != AddEditing {
		return nil, fmt.Errorf("add dialog is not open")
	}
	f, err := form.parse()
	if err != nil {
		return nil, err
	}

	taskType := "task"
	disabled := false
	styles := api.Styles(DefaultStyles)
	progress := f.progress
	req := api.CreateTaskRequest{
		Name:       f.name,
		Start:      f.start.Format(formDate),
		End:        f.end.Format(formDate),
		Progress:   &progress,
		Type:       &taskType,
		IsDisabled: &disabled,
		Styles:     &styles,
	}

	c.pending++
	return func(ctx context.Context) Result {
		task, err := c.api.CreateTask(ctx, req)
		return createResult{task: task, err: err}
	}, nil
}

// SubmitEdit sends the whole edited task, unchanged fields included
func (c *Controller) SubmitEdit(form TaskForm) (Call, error) {
	if c.mode != EditEditing {
		return nil, fmt.Errorf("edit dialog is not open")
	}
	f, err := form.parse()
	if err != nil {
		return nil, err
	}

	data := c.editing.TaskData
	data.Name, data.Start, data.End, data.Progress = f.name, f.start, f.end, f.progress
	return c.updateCall(c.editing.ID, data, true), nil
}

// MoveTask applies new dates from a chart gesture. Placeholders are refused
// locally.
func (c *Controller) MoveTask(t ClientTask, start, end time.Time) Call {
	rt, ok := t.(RealTask)
	if !ok {
		c.info("Sample tasks cannot be edited.")
		return nil
	}
	data := rt.TaskData
	data.Start, data.End = start, end
	return c.updateCall(rt.ID, data, false)
}

// Delete removes a real task. Placeholders are refused locally.
func (c *Controller) Delete(t ClientTask) Call {
	rt, ok := t.(RealTask)
	if !ok {
		c.info("Sample tasks cannot be deleted.")
		return nil
	}
	return c.deleteCall(rt)
}

func (c *Controller) updateCall(id int64, data TaskData, fromEdit bool) Call {
	name := data.Name
	start := data.Start.UTC().Format(time.RFC3339)
	end := data.End.UTC().Format(time.RFC3339)
	progress := data.Progress
	taskType := data.Type
	disabled := data.IsDisabled
	styles := api.Styles(data.Styles)
	req := api.UpdateTaskRequest{
		Name:       &name,
		Start:      &start,
		End:        &end,
		Progress:   &progress,
		Type:       &taskType,
		IsDisabled: &disabled,
		Styles:     &styles,
	}

	c.pending++
	return func(ctx context.Context) Result {
		task, err := c.api.UpdateTask(ctx, id, req)
		return updateResult{id: id, fromEdit: fromEdit, task: task, err: err}
	}
}

func (c *Controller) deleteCall(t RealTask) Call {
	c.pending++
	return func(ctx context.Context) Result {
		return deleteResult{id: t.ID, err: c.api.DeleteTask(ctx, t.ID)}
	}
}

// Apply merges a Call's result into the list
func (c *Controller) Apply(r Result) {
	switch r := r.(type) {
	case loadResult:
		c.loading = false
		if r.err != nil || len(r.tasks) == 0 {
			c.tasks = Placeholders()
			return
		}
		tasks := make([]ClientTask, 0, len(r.tasks))
		for _, t := range r.tasks {
			tasks = append(tasks, fromAPI(t))
		}
		c.tasks = tasks

	case createResult:
		c.pending--
		if r.err != nil {
			c.fail("Failed to add task: %v", r.err)
			return
		}
		created := fromAPI(r.task)
		if onlyPlaceholders(c.tasks) {
			c.tasks = []ClientTask{created}
		} else {
			c.tasks = append(c.Tasks(), created)
		}
		if c.mode == AddEditing {
			c.mode = Viewing
		}

	case updateResult:
		c.pending--
		if r.err != nil {
			c.fail("Failed to update task: %v", r.err)
			return
		}
		updated := fromAPI(r.task)
		tasks := c.Tasks()
		for i, t := range tasks {
			if rt, ok := t.(RealTask); ok && rt.ID == r.id {
				tasks[i] = updated
			}
		}
		c.tasks = tasks
		if r.fromEdit && c.mode == EditEditing && c.editing.ID == r.id {
			c.Cancel()
		}

	case deleteResult:
		c.pending--
		if r.err != nil {
			c.fail("Failed to delete task: %v", r.err)
			return
		}
		remaining := make([]ClientTask, 0, len(c.tasks))
		for _, t := range c.tasks {
			if rt, ok := t.(RealTask); ok && rt.ID == r.id {
				continue
			}
			remaining = append(remaining, t)
		}
		if len(remaining) == 0 {
			remaining = Placeholders()
		}
		c.tasks = remaining
		if c.mode == EditEditing && c.editing.ID == r.id {
			c.Cancel()
		}
	}
}
