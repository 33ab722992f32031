// Package gantt draws tasks as month-scaled bars and turns key gestures on
// the chart into events.
package gantt

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crossingdelta/timeline/internal/timeline"
)

const (
	labelWidth       = 20
	defaultBarWidth  = 60
	doubleClickDelay = 400 * time.Millisecond
	day              = 24 * time.Hour
)

type EventKind int

const (
	// Click selects a task
	Click EventKind = iota
	// DoubleClick asks to edit a task
	DoubleClick
	// DateChange carries new dates from a move or resize gesture
	DateChange
)

func (k EventKind) String() string {
	switch k {
	case DoubleClick:
		return "double-click"
	case DateChange:
		return "date-change"
	default:
		return "click"
	}
}

// Event is a gesture on a bar. Start and End are only set for DateChange.
type Event struct {
	Kind  EventKind
	Task  timeline.ClientTask
	Start time.Time
	End   time.Time
}

// Chart keeps the selection and gesture state of the bar chart. The zero
// value is usable.
type Chart struct {
	width    int
	selected int

	lastClick time.Time
	now       func() time.Time
}

// SetWidth sets the total rendered width, label column included
func (c *Chart) SetWidth(w int) {
	c.width = w - labelWidth - 1
}

func (c *Chart) barWidth() int {
	if c.width < 10 {
		return defaultBarWidth
	}
	return c.width
}

func (c *Chart) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Selected returns the index of the highlighted bar
func (c *Chart) Selected() int { return c.selected }

// Select highlights bar i, clamped to the task count
func (c *Chart) Select(i, n int) {
	switch {
	case n == 0 || i < 0:
		c.selected = 0
	case i >= n:
		c.selected = n - 1
	default:
		c.selected = i
	}
}

// HandleKey applies a key to the chart. It reports an event when the key is
// a gesture on the selected bar.
//
//	up/k down/j          move the selection
//	space                click (twice quickly for a double-click)
//	enter                double-click
//	left/h right/l       move the bar by a day
//	shift+left shift+right  shorten or lengthen the bar by a day
func (c *Chart) HandleKey(msg tea.KeyMsg, tasks []timeline.ClientTask) (Event, bool) {
	if len(tasks) == 0 {
		return Event{}, false
	}
	c.Select(c.selected, len(tasks))
	task := tasks[c.selected]
	d := task.Data()

	switch msg.String() {
	case "up", "k":
		c.Select(c.selected-1, len(tasks))
	case "down", "j":
		c.Select(c.selected+1, len(tasks))
	case " ":
		now := c.clock()
		if !c.lastClick.IsZero() && now.Sub(c.lastClick) <= doubleClickDelay {
			c.lastClick = time.Time{}
			return Event{Kind: DoubleClick, Task: task}, true
		}
		c.lastClick = now
		return Event{Kind: Click, Task: task}, true
	case "enter":
		return Event{Kind: DoubleClick, Task: task}, true
	case "left", "h":
		return Event{Kind: DateChange, Task: task, Start: d.Start.Add(-day), End: d.End.Add(-day)}, true
	case "right", "l":
		return Event{Kind: DateChange, Task: task, Start: d.Start.Add(day), End: d.End.Add(day)}, true
	case "shift+left":
		return Event{Kind: DateChange, Task: task, Start: d.Start, End: d.End.Add(-day)}, true
	case "shift+right":
		return Event{Kind: DateChange, Task: task, Start: d.Start, End: d.End.Add(day)}, true
	}
	return Event{}, false
}

// window is the month-aligned date range covering every task
func window(tasks []timeline.ClientTask) (time.Time, time.Time) {
	var lo, hi time.Time
	for i, t := range tasks {
		d := t.Data()
		first, last := d.Start, d.End
		if last.Before(first) {
			first, last = last, first
		}
		if i == 0 || first.Before(lo) {
			lo = first
		}
		if i == 0 || last.After(hi) {
			hi = last
		}
	}
	lo = time.Date(lo.Year(), lo.Month(), 1, 0, 0, 0, 0, time.UTC)
	hi = time.Date(hi.Year(), hi.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return lo, hi
}

func column(t, lo, hi time.Time, width int) int {
	total := hi.Sub(lo)
	if total <= 0 {
		return 0
	}
	col := int(float64(t.Sub(lo)) / float64(total) * float64(width))
	return max(0, min(col, width))
}

// span returns the bar's first column and its length, at least one cell
func span(d timeline.TaskData, lo, hi time.Time, width int) (int, int) {
	first, last := d.Start, d.End
	if last.Before(first) {
		first, last = last, first
	}
	from := column(first, lo, hi, width)
	to := column(last, lo, hi, width)
	if to <= from {
		to = min(from+1, width)
		from = to - 1
	}
	return from, to - from
}

// Render draws a month header and one bar per task
func (c *Chart) Render(tasks []timeline.ClientTask) string {
	if len(tasks) == 0 {
		return ""
	}
	c.Select(c.selected, len(tasks))
	width := c.barWidth()
	lo, hi := window(tasks)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelWidth+1))
	b.WriteString(monthHeader(lo, hi, width))
	b.WriteByte('\n')

	for i, t := range tasks {
		b.WriteString(c.row(t.Data(), i == c.selected, lo, hi, width))
		if i < len(tasks)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func monthHeader(lo, hi time.Time, width int) string {
	line := []rune(strings.Repeat(" ", width))
	for m := lo; m.Before(hi); m = m.AddDate(0, 1, 0) {
		col := column(m, lo, hi, width)
		label := m.Format("Jan")
		if m.Month() == time.January || m.Equal(lo) {
			label = m.Format("Jan 06")
		}
		for i, r := range label {
			if col+i >= width {
				break
			}
			line[col+i] = r
		}
	}
	return string(line)
}

func (c *Chart) row(d timeline.TaskData, selected bool, lo, hi time.Time, width int) string {
	name := d.Name
	if r := []rune(name); len(r) > labelWidth {
		name = string(r[:labelWidth-1]) + "…"
	}
	labelStyle := lipgloss.NewStyle().Width(labelWidth)
	if selected {
		labelStyle = labelStyle.Bold(true)
	}

	progressColor, backgroundColor := d.Styles.ProgressColor, d.Styles.BackgroundColor
	if selected {
		progressColor, backgroundColor = d.Styles.ProgressSelectedColor, d.Styles.BackgroundSelectedColor
	}
	done := lipgloss.NewStyle().Foreground(lipgloss.Color(progressColor))
	rest := lipgloss.NewStyle().Foreground(lipgloss.Color(backgroundColor))
	if d.IsDisabled {
		done, rest = done.Faint(true), rest.Faint(true)
	}

	from, length := span(d, lo, hi, width)
	filled := length * max(0, min(d.Progress, 100)) / 100

	var b strings.Builder
	b.WriteString(labelStyle.Render(name))
	b.WriteByte(' ')
	b.WriteString(strings.Repeat(" ", from))
	b.WriteString(done.Render(strings.Repeat("█", filled)))
	b.WriteString(rest.Render(strings.Repeat("░", length-filled)))
	b.WriteString(fmt.Sprintf(" %d%%", d.Progress))
	return b.String()
}
