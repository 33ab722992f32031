package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/crossingdelta/timeline/internal/timeline"
)

var errProgress = errors.New("progress must be a whole number")

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorAccent = ac("#4c51bf", "#667eea")
	colorMuted  = ac("240", "243")
	colorError  = ac("160", "203")
	colorBorder = ac("250", "240")

	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleSubtitle = lipgloss.NewStyle().Foreground(colorMuted)
	styleSection  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleHelp     = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	styleInfo     = lipgloss.NewStyle().Foreground(colorAccent)
	styleError    = lipgloss.NewStyle().Foreground(colorError)
	styleModal    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)
)

func (m Model) View() string {
	if m.ctrl.Loading() && m.modal == modalNone {
		return m.header() + "\n\n" + m.spinner.View() + " Loading tasks…"
	}

	switch m.modal {
	case modalForm:
		return m.place(m.formView())
	case modalConfirmDelete:
		return m.place(m.confirmView())
	}

	parts := []string{m.header(), m.listView(), m.chartView()}
	if n := m.noticeView(); n != "" {
		parts = append(parts, n)
	}
	parts = append(parts, styleHelp.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) place(box string) string {
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) header() string {
	user := m.session.User
	return lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render(user.Company),
		styleSubtitle.Render(fmt.Sprintf("Hello, %s", user.Username)),
	)
}

func (m Model) listView() string {
	title := "Tasks"
	if m.pane == paneList {
		title += " ▸"
	}
	lines := []string{styleSection.Render(title)}
	for i, t := range m.ctrl.Tasks() {
		d := t.Data()
		line := fmt.Sprintf("%-24s %s → %s  %3d%%",
			truncate(d.Name, 24),
			d.Start.UTC().Format("2006-01-02"),
			d.End.UTC().Format("2006-01-02"),
			d.Progress,
		)
		if _, ok := t.(timeline.PlaceholderTask); ok {
			line += "  (sample)"
		}
		if i == m.cursor {
			line = styleSelected.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) chartView() string {
	title := "Timeline"
	if m.pane == paneChart {
		title += " ▸"
	}
	return styleSection.Render(title) + "\n" + m.chart.Render(m.ctrl.Tasks())
}

func (m Model) noticeView() string {
	n, ok := m.ctrl.Notice()
	if !ok {
		return ""
	}
	if n.Kind == timeline.NoticeError {
		return styleError.Render(n.Text)
	}
	return styleInfo.Render(n.Text)
}

func (m Model) helpLine() string {
	if m.pane == paneChart {
		return "tab: list  j/k: select  space: click  enter: edit  h/l: move  shift+←/→: resize  q: quit"
	}
	return "tab: chart  a: add  e: edit  d: delete  r: reload  L: logout  q: quit"
}

func (m Model) formView() string {
	title := "New task"
	if m.ctrl.Mode() == timeline.EditEditing {
		title = "Edit task"
	}
	labels := [fieldCount]string{"Name", "Start", "End", "Progress"}

	lines := []string{styleTitle.Render(title), ""}
	for i, in := range m.inputs {
		lines = append(lines, fmt.Sprintf("%-9s %s", labels[i], in.View()))
	}
	if m.formErr != "" {
		lines = append(lines, "", styleError.Render(m.formErr))
	}
	if n := m.noticeView(); n != "" {
		lines = append(lines, "", n)
	}
	if m.ctrl.Busy() {
		lines = append(lines, "", styleSubtitle.Render("Saving…"))
	}
	lines = append(lines, styleHelp.Render("tab: next field  enter: save  esc: cancel"))
	return styleModal.Render(strings.Join(lines, "\n"))
}

func (m Model) confirmView() string {
	name := ""
	if m.pendingDelete != nil {
		name = m.pendingDelete.Data().Name
	}
	body := strings.Join([]string{
		styleTitle.Render("Delete task"),
		"",
		fmt.Sprintf("Delete %q?", name),
		styleHelp.Render("y/enter: delete  n/esc: cancel"),
	}, "\n")
	return styleModal.Render(body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
