package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
)

const formDate = "2006-01-02"

// TaskForm is the buffer behind the add and edit dialogs
type TaskForm struct {
	Name     string
	Start    string
	End      string
	Progress int
}

// FormFor fills a form from an existing task
func FormFor(t ClientTask) TaskForm {
	d := t.Data()
	return TaskForm{
		Name:     d.Name,
		Start:    d.Start.UTC().Format(formDate),
		End:      d.End.UTC().Format(formDate),
		Progress: d.Progress,
	}
}

type parsedForm struct {
	name       string
	start, end time.Time
	progress   int
}

// parse checks the same constraints as the browser form: all fields
// required and progress within 0..100. Start after end is accepted.
func (f TaskForm) parse() (parsedForm, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" || strings.TrimSpace(f.Start) == "" || strings.TrimSpace(f.End) == "" {
		return parsedForm{}, fmt.Errorf("name, start and end are required")
	}
	start, err := domain.ParseDate(f.Start)
	if err != nil {
		return parsedForm{}, fmt.Errorf("start date %q is not YYYY-MM-DD", f.Start)
	}
	end, err := domain.ParseDate(f.End)
	if err != nil {
		return parsedForm{}, fmt.Errorf("end date %q is not YYYY-MM-DD", f.End)
	}
	if f.Progress < 0 || f.Progress > 100 {
		return parsedForm{}, fmt.Errorf("progress must be between 0 and 100")
	}
	return parsedForm{name: name, start: start, end: end, progress: f.Progress}, nil
}
