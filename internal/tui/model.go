// Package tui is the interactive terminal timeline: a header, the task list,
// the bar chart and the add/edit/delete dialogs.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/crossingdelta/timeline/internal/client"
	"github.com/crossingdelta/timeline/internal/gantt"
	"github.com/crossingdelta/timeline/internal/timeline"
)

const noticeTTL = 4 * time.Second

type pane int

const (
	paneList pane = iota
	paneChart
)

type modalKind int

const (
	modalNone modalKind = iota
	modalForm
	modalConfirmDelete
)

const (
	fieldName = iota
	fieldStart
	fieldEnd
	fieldProgress
	fieldCount
)

// resultMsg carries a finished network call back onto the UI loop
type resultMsg struct{ result timeline.Result }

type clearNoticeMsg struct{ seq int }

// Model is the bubbletea model. The controller is shared between copies and
// only touched from Update.
type Model struct {
	ctx     context.Context
	session client.Session
	ctrl    *timeline.Controller

	width, height int
	cursor        int
	pane          pane
	chart         gantt.Chart

	modal         modalKind
	inputs        []textinput.Model
	field         int
	formErr       string
	pendingDelete timeline.ClientTask

	spinner   spinner.Model
	noticeSeq int
	loggedOut bool
}

// New builds the model for an explicit session
func New(ctx context.Context, session client.Session, ctrl *timeline.Controller) Model {
	m := Model{
		ctx:     ctx,
		session: session,
		ctrl:    ctrl,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	placeholders := [fieldCount]string{"Task name", "Start (YYYY-MM-DD)", "End (YYYY-MM-DD)", "Progress (0-100)"}
	limits := [fieldCount]int{200, 10, 10, 3}
	for i := 0; i < fieldCount; i++ {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		in.Width = 40
		m.inputs = append(m.inputs, in)
	}
	return m
}

// LoggedOut reports whether the user left through the logout key
func (m Model) LoggedOut() bool { return m.loggedOut }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(m.ctrl.Load()))
}

// run executes call off the UI loop
func (m Model) run(call timeline.Call) tea.Cmd {
	if call == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{result: call(ctx)}
	}
}

// Run starts the full-screen timeline and reports whether the user logged out
func Run(ctx context.Context, session client.Session, ctrl *timeline.Controller) (bool, error) {
	final, err := tea.NewProgram(New(ctx, session, ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(Model)
	return ok && m.loggedOut, nil
}
