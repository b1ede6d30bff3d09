// Package codec converts the in-memory task tree to and from its plain JSON
// representation. Decoding repairs missing or malformed optional structure
// instead of failing; only text that is not a JSON object is rejected.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amirbrooks/todo-vault/internal/model"
)

var ErrMalformed = errors.New("malformed data")

// TimeLayout is ISO-8601 in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// TimeLayout only has room for four-digit years.
var (
	minTime = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(9999, 12, 31, 23, 59, 59, 999_000_000, time.UTC)
)

// FormatTime clamps t to years 0000..9999 so ParseTime can always read the
// result back.
func FormatTime(t time.Time) string {
	t = t.UTC()
	switch {
	case t.Before(minTime):
		t = minTime
	case t.After(maxTime):
		t = maxTime
	}
	return t.Format(TimeLayout)
}

// ParseTime accepts RFC 3339 timestamps plus a couple of zone-less forms,
// which are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.NormalizeTime(t), true
		}
	}
	return time.Time{}, false
}

func TaskToPlain(t model.Task) PlainTask {
	tags := make([]string, len(t.Tags))
	copy(tags, t.Tags)
	subtasks := make([]PlainTask, 0, len(t.Subtasks))
	for _, st := range t.Subtasks {
		subtasks = append(subtasks, TaskToPlain(st))
	}
	return PlainTask{
		ID:        t.ID,
		Title:     t.Title,
		Status:    string(t.Status),
		Tags:      tags,
		Subtasks:  subtasks,
		CreatedAt: FormatTime(t.CreatedAt),
		UpdatedAt: FormatTime(t.UpdatedAt),
	}
}

// TaskFromPlain repairs what it cannot use: a missing or unknown status
// becomes todo, and an unreadable updatedAt falls back to createdAt.
func TaskFromPlain(p PlainTask) model.Task {
	created, _ := ParseTime(p.CreatedAt)
	updated, ok := ParseTime(p.UpdatedAt)
	if !ok {
		updated = created
	}
	status := model.Status(p.Status)
	if !status.Valid() {
		status = model.StatusTodo
	}
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	subtasks := make([]model.Task, 0, len(p.Subtasks))
	for _, st := range p.Subtasks {
		subtasks = append(subtasks, TaskFromPlain(st))
	}
	return model.Task{
		ID:        p.ID,
		Title:     p.Title,
		Status:    status,
		Tags:      tags,
		Subtasks:  subtasks,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func ProjectToPlain(p model.Project) PlainProject {
	tasks := make([]PlainTask, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, TaskToPlain(t))
	}
	return PlainProject{ID: p.ID, Name: p.Name, Tasks: tasks}
}

func ProjectFromPlain(p PlainProject) model.Project {
	tasks := make([]model.Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, TaskFromPlain(t))
	}
	return model.Project{ID: p.ID, Name: p.Name, Tasks: tasks}
}

func FiltersToPlain(f model.Filters) PlainFilters {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	tags := make([]string, len(f.Tags))
	copy(tags, f.Tags)
	return PlainFilters{Statuses: statuses, Tags: tags, Search: f.Search}
}

// FiltersFromPlain merges p over the default filters one field at a time.
// Unknown status names are dropped.
func FiltersFromPlain(p PlainFilters) model.Filters {
	f := model.DefaultFilters()
	if p.Statuses != nil {
		f.Statuses = make([]model.Status, 0, len(p.Statuses))
		for _, s := range p.Statuses {
			if st := model.Status(s); st.Valid() {
				f.Statuses = append(f.Statuses, st)
			}
		}
	}
	if p.Tags != nil {
		f.Tags = make([]string, len(p.Tags))
		copy(f.Tags, p.Tags)
	}
	f.Search = p.Search
	return f
}

func SnapshotToPlain(d model.AppData) PlainSnapshot {
	projects := make([]PlainProject, 0, len(d.Projects))
	for _, p := range d.Projects {
		projects = append(projects, ProjectToPlain(p))
	}
	return PlainSnapshot{
		Projects:        projects,
		Filters:         FiltersToPlain(d.Filters),
		ActiveProjectID: d.ActiveProjectID,
	}
}

func SnapshotFromPlain(s PlainSnapshot) model.AppData {
	projects := make([]model.Project, 0, len(s.Projects))
	for _, p := range s.Projects {
		projects = append(projects, ProjectFromPlain(p))
	}
	return model.AppData{
		Projects:        projects,
		ActiveProjectID: s.ActiveProjectID,
		Filters:         FiltersFromPlain(s.Filters),
	}
}

// Marshal encodes the whole snapshot as JSON text.
func Marshal(d model.AppData) ([]byte, error) {
	b, err := json.Marshal(SnapshotToPlain(d))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Unmarshal decodes snapshot text. It fails with ErrMalformed only when b is
// not valid JSON or not an object; everything else is repaired.
func Unmarshal(b []byte) (model.AppData, error) {
	if !json.Valid(b) {
		return model.AppData{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	var s PlainSnapshot
	if err := s.UnmarshalJSON(b); err != nil {
		return model.AppData{}, err
	}
	return SnapshotFromPlain(s), nil
}
