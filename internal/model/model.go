package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
)

// MatchConflictError reports an id prefix shared by several tasks.
// It satisfies errors.Is(err, ErrConflict).
type MatchConflictError struct {
	Prefix  string
	Matches []string
}

func (e *MatchConflictError) Error() string {
	return fmt.Sprintf("conflict: %q matches %d tasks (%s)", e.Prefix, len(e.Matches), strings.Join(e.Matches, ", "))
}

func (e *MatchConflictError) Is(target error) bool {
	return target == ErrConflict
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus normalizes user input to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "todo", "open", "t":
		return StatusTodo, nil
	case "in-progress", "in_progress", "inprogress", "doing", "wip", "p":
		return StatusInProgress, nil
	case "done", "complete", "completed", "d":
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalid, s)
	}
}

type Task struct {
	ID        string
	Title     string
	Status    Status
	Tags      []string
	Subtasks  []Task
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Project struct {
	ID    string
	Name  string
	Tasks []Task
}

type Filters struct {
	Statuses []Status
	Tags     []string
	Search   string
}

// AppData is the whole persisted snapshot. ActiveProjectID selects the
// project the front end works on; when empty or stale the first project is used.
type AppData struct {
	Projects        []Project
	ActiveProjectID string
	Filters         Filters
}

func DefaultFilters() Filters {
	return Filters{
		Statuses: AllStatuses(),
		Tags:     []string{},
		Search:   "",
	}
}

// NormalizeTime truncates t to the precision the plain representation keeps.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func NewTask(id, title string, tags []string, now time.Time) Task {
	if tags == nil {
		tags = []string{}
	}
	return Task{
		ID:        id,
		Title:     title,
		Status:    StatusTodo,
		Tags:      tags,
		Subtasks:  []Task{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewProject(id, name string) Project {
	return Project{ID: id, Name: name, Tasks: []Task{}}
}

// Touch records a mutation at now, never moving UpdatedAt before CreatedAt.
func (t *Task) Touch(now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

func (t Task) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

// Match reports whether t passes every non-empty filter field.
func (f Filters) Match(t Task) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if s == t.Status {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Tags) > 0 {
		ok := false
		for _, tag := range f.Tags {
			if t.HasTag(tag) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q != "" && !strings.Contains(strings.ToLower(t.Title), q) {
		return false
	}
	return true
}

// ActiveProject returns the project selected by ActiveProjectID, falling back
// to the first project. It returns nil when there are no projects.
func (d *AppData) ActiveProject() *Project {
	if len(d.Projects) == 0 {
		return nil
	}
	if d.ActiveProjectID != "" {
		for i := range d.Projects {
			if d.Projects[i].ID == d.ActiveProjectID {
				return &d.Projects[i]
			}
		}
	}
	return &d.Projects[0]
}

func (d *AppData) ProjectByID(id string) *Project {
	for i := range d.Projects {
		if d.Projects[i].ID == id {
			return &d.Projects[i]
		}
	}
	return nil
}

// ParseTags splits comma separated input, trims entries and drops blanks and
// case-insensitive duplicates. First occurrence order is kept.
func ParseTags(input string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range strings.Split(input, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
