package gantt

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crossingdelta/timeline/internal/timeline"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func realTask(id int64, name, start, end string, progress int) timeline.RealTask {
	return timeline.RealTask{ID: id, TaskData: timeline.TaskData{
		Name: name, Start: date(start), End: date(end), Progress: progress,
		Type: "task", Styles: timeline.DefaultStyles,
	}}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "shift+right":
		return tea.KeyMsg{Type: tea.KeyShiftRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWindowIsMonthAligned(t *testing.T) {
	tasks := []timeline.ClientTask{
		realTask(1, "a", "2025-03-10", "2025-04-02", 0),
		realTask(2, "b", "2025-02-20", "2025-02-25", 0),
	}
	lo, hi := window(tasks)
	if !lo.Equal(date("2025-02-01")) || !hi.Equal(date("2025-05-01")) {
		t.Fatalf("unexpected window %s..%s", lo, hi)
	}
}

func TestSpanHasAtLeastOneCell(t *testing.T) {
	lo, hi := date("2025-01-01"), date("2026-01-01")
	d := realTask(1, "a", "2025-06-01", "2025-06-01", 0).TaskData
	if _, length := span(d, lo, hi, 60); length != 1 {
		t.Fatalf("expected one cell for a zero-length task, got %d", length)
	}

	full := realTask(2, "b", "2025-01-01", "2026-01-01", 0).TaskData
	from, length := span(full, lo, hi, 60)
	if from != 0 || length != 60 {
		t.Fatalf("expected full width bar, got from=%d len=%d", from, length)
	}
}

func TestRenderDrawsProgress(t *testing.T) {
	var c Chart
	c.SetWidth(labelWidth + 1 + 40)
	out := c.Render([]timeline.ClientTask{realTask(1, "Kickoff", "2025-01-01", "2025-02-01", 50)})

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "Jan 25") {
		t.Fatalf("header missing first month: %q", lines[0])
	}
	row := lines[1]
	if !strings.Contains(row, "Kickoff") || !strings.Contains(row, "50%") {
		t.Fatalf("row missing label or progress: %q", row)
	}
	filled, empty := strings.Count(row, "█"), strings.Count(row, "░")
	if filled == 0 || empty == 0 || filled+empty == 0 {
		t.Fatalf("unexpected bar %q", row)
	}
}

func TestRenderEmpty(t *testing.T) {
	var c Chart
	if out := c.Render(nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestSelectionAndClicks(t *testing.T) {
	tasks := []timeline.ClientTask{
		realTask(1, "a", "2025-01-01", "2025-01-10", 0),
		realTask(2, "b", "2025-02-01", "2025-02-10", 0),
	}
	now := date("2025-01-01")
	c := Chart{now: func() time.Time { return now }}

	if _, ok := c.HandleKey(key("down"), tasks); ok {
		t.Fatalf("selection change reported an event")
	}
	if c.Selected() != 1 {
		t.Fatalf("expected selection 1, got %d", c.Selected())
	}
	c.HandleKey(key("down"), tasks)
	if c.Selected() != 1 {
		t.Fatalf("selection ran past the last task")
	}

	ev, ok := c.HandleKey(key(" "), tasks)
	if !ok || ev.Kind != Click || ev.Task.Key() != "2" {
		t.Fatalf("expected click on task 2, got %+v", ev)
	}
	now = now.Add(100 * time.Millisecond)
	ev, _ = c.HandleKey(key(" "), tasks)
	if ev.Kind != DoubleClick {
		t.Fatalf("expected double-click, got %s", ev.Kind)
	}
	now = now.Add(time.Second)
	ev, _ = c.HandleKey(key(" "), tasks)
	if ev.Kind != Click {
		t.Fatalf("expected a fresh click, got %s", ev.Kind)
	}

	ev, _ = c.HandleKey(key("enter"), tasks)
	if ev.Kind != DoubleClick {
		t.Fatalf("enter should double-click, got %s", ev.Kind)
	}
}

func TestDateGestures(t *testing.T) {
	tasks := []timeline.ClientTask{realTask(1, "a", "2025-01-01", "2025-01-10", 0)}
	var c Chart

	ev, ok := c.HandleKey(key("right"), tasks)
	if !ok || ev.Kind != DateChange {
		t.Fatalf("expected date change, got %+v", ev)
	}
	if !ev.Start.Equal(date("2025-01-02")) || !ev.End.Equal(date("2025-01-11")) {
		t.Fatalf("unexpected move %s..%s", ev.Start, ev.End)
	}

	ev, _ = c.HandleKey(key("shift+right"), tasks)
	if !ev.Start.Equal(date("2025-01-01")) || !ev.End.Equal(date("2025-01-11")) {
		t.Fatalf("unexpected resize %s..%s", ev.Start, ev.End)
	}
}

func TestPlaceholderGesturesAreForwarded(t *testing.T) {
	var c Chart
	ev, ok := c.HandleKey(key("l"), timeline.Placeholders())
	if !ok || ev.Kind != DateChange {
		t.Fatalf("chart should forward gestures on any task, got %+v", ev)
	}
	if _, isPlaceholder := ev.Task.(timeline.PlaceholderTask); !isPlaceholder {
		t.Fatalf("expected the placeholder in the event")
	}
}
