package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/crossingdelta/timeline/internal/gantt"
	"github.com/crossingdelta/timeline/internal/timeline"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.chart.SetWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		if !m.ctrl.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.ctrl.Apply(msg.result)
		if m.modal == modalForm && m.ctrl.Mode() == timeline.Viewing {
			m.closeForm()
		}
		m.clampCursor()
		return m, m.noticeTimer()

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.ctrl.ClearNotice()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.modal {
		case modalForm:
			return m.updateForm(msg)
		case modalConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m.updateViewing(msg)
	}
	return m, nil
}

// noticeTimer schedules the current notice to disappear
func (m *Model) noticeTimer() tea.Cmd {
	if _, ok := m.ctrl.Notice(); !ok {
		return nil
	}
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.Tasks())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.chart.Select(m.cursor, n)
}

func (m Model) selectedTask() (timeline.ClientTask, bool) {
	tasks := m.ctrl.Tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return nil, false
	}
	return tasks[m.cursor], true
}

func (m Model) updateViewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "L":
		m.loggedOut = true
		return m, tea.Quit
	case "tab":
		if m.pane == paneList {
			m.pane = paneChart
		} else {
			m.pane = paneList
		}
		return m, nil
	case "r":
		return m, tea.Batch(m.spinner.Tick, m.run(m.ctrl.Load()))
	case "a":
		if m.ctrl.OpenAdd() {
			return m, m.openForm(timeline.TaskForm{})
		}
		return m, nil
	}

	if m.pane == paneChart {
		return m.updateChart(msg)
	}

	tasks := m.ctrl.Tasks()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.chart.Select(m.cursor, len(tasks))
	case "down", "j":
		if m.cursor < len(tasks)-1 {
			m.cursor++
		}
		m.chart.Select(m.cursor, len(tasks))
	case "e", "enter":
		if t, ok := m.selectedTask(); ok {
			return m.editIntent(t)
		}
	case "d", "delete":
		if t, ok := m.selectedTask(); ok {
			return m.deleteIntent(t)
		}
	}
	return m, nil
}

// updateChart forwards keys to the chart. Clicks select, double-clicks take
// the same path as the list's edit key, and date gestures go to the
// controller unchecked.
func (m Model) updateChart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ev, ok := m.chart.HandleKey(msg, m.ctrl.Tasks())
	m.cursor = m.chart.Selected()
	if !ok {
		return m, nil
	}
	switch ev.Kind {
	case gantt.DoubleClick:
		return m.editIntent(ev.Task)
	case gantt.DateChange:
		call := m.ctrl.MoveTask(ev.Task, ev.Start, ev.End)
		if call == nil {
			return m, m.noticeTimer()
		}
		return m, m.run(call)
	}
	return m, nil
}

func (m Model) editIntent(t timeline.ClientTask) (tea.Model, tea.Cmd) {
	if !m.ctrl.OpenEdit(t) {
		return m, m.noticeTimer()
	}
	return m, m.openForm(timeline.FormFor(t))
}

func (m Model) deleteIntent(t timeline.ClientTask) (tea.Model, tea.Cmd) {
	if _, ok := t.(timeline.RealTask); !ok {
		// the controller refuses placeholders and posts the notice
		m.ctrl.Delete(t)
		return m, m.noticeTimer()
	}
	m.pendingDelete = t
	m.modal = modalConfirmDelete
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		t := m.pendingDelete
		m.pendingDelete = nil
		m.modal = modalNone
		return m, m.run(m.ctrl.Delete(t))
	case "n", "esc":
		m.pendingDelete = nil
		m.modal = modalNone
	}
	return m, nil
}

func (m *Model) openForm(f timeline.TaskForm) tea.Cmd {
	values := [fieldCount]string{f.Name, f.Start, f.End, ""}
	if f.Name != "" {
		values[fieldProgress] = strconv.Itoa(f.Progress)
	}
	for i := range m.inputs {
		m.inputs[i].SetValue(values[i])
		m.inputs[i].Blur()
	}
	m.field = fieldName
	m.formErr = ""
	m.modal = modalForm
	return m.inputs[m.field].Focus()
}

func (m *Model) closeForm() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.formErr = ""
	m.modal = modalNone
}

func (m *Model) focusField(i int) tea.Cmd {
	m.inputs[m.field].Blur()
	m.field = (i + fieldCount) % fieldCount
	return m.inputs[m.field].Focus()
}

func (m Model) formValues() (timeline.TaskForm, error) {
	f := timeline.TaskForm{
		Name:  m.inputs[fieldName].Value(),
		Start: m.inputs[fieldStart].Value(),
		End:   m.inputs[fieldEnd].Value(),
	}
	if raw := strings.TrimSpace(m.inputs[fieldProgress].Value()); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return f, errProgress
		}
		f.Progress = p
	}
	return f, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.Cancel()
		m.closeForm()
		return m, nil
	case "tab", "down":
		return m, m.focusField(m.field + 1)
	case "shift+tab", "up":
		return m, m.focusField(m.field - 1)
	case "enter":
		form, err := m.formValues()
		if err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		var call timeline.Call
		if m.ctrl.Mode() == timeline.EditEditing {
			call, err = m.ctrl.SubmitEdit(form)
		} else {
			call, err = m.ctrl.SubmitAdd(form)
		}
		if err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		m.formErr = ""
		return m, m.run(call)
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}
