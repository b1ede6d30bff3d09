package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PlainTask is the JSON shape of a task:
//
//	{ id, title, status, tags: [], subtasks: [PlainTask], createdAt, updatedAt }
//
// Decoding is lenient. Fields of the wrong type are left empty, a
// subtasks value that is not a list leaves Subtasks nil, and list elements
// that are not objects are skipped.
type PlainTask struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Status    string      `json:"status"`
	Tags      []string    `json:"tags"`
	Subtasks  []PlainTask `json:"subtasks"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
}

type PlainProject struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Tasks []PlainTask `json:"tasks"`
}

// PlainFilters keeps nil for list fields that were absent or not lists so
// FiltersFromPlain can tell them apart from an explicit empty list.
type PlainFilters struct {
	Statuses []string `json:"statuses"`
	Tags     []string `json:"tags"`
	Search   string   `json:"search"`
}

type PlainSnapshot struct {
	Projects        []PlainProject `json:"projects"`
	Filters         PlainFilters   `json:"filters"`
	ActiveProjectID string         `json:"activeProjectId,omitempty"`
}

// decodeValue parses b once into generic values. Every repair below works
// on that tree, so decoding stays linear in the size of the text however
// deep the subtasks go.
func decodeValue(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return v, nil
}

type object map[string]any

func asObject(v any) (object, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func (o object) str(key string) string {
	s, _ := o[key].(string)
	return s
}

func (o object) list(key string) ([]any, bool) {
	items, ok := o[key].([]any)
	return items, ok
}

// strings returns the string elements of a list field, dropping the rest.
func (o object) strings(key string) []string {
	items, ok := o.list(key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func taskFromValue(v any) (PlainTask, bool) {
	o, ok := asObject(v)
	if !ok {
		return PlainTask{}, false
	}
	p := PlainTask{
		ID:        o.str("id"),
		Title:     o.str("title"),
		Status:    o.str("status"),
		Tags:      o.strings("tags"),
		CreatedAt: o.str("createdAt"),
		UpdatedAt: o.str("updatedAt"),
	}
	if items, ok := o.list("subtasks"); ok {
		p.Subtasks = tasksFromValues(items)
	}
	return p, true
}

// tasksFromValues skips list elements that are not objects.
func tasksFromValues(items []any) []PlainTask {
	out := make([]PlainTask, 0, len(items))
	for _, item := range items {
		if t, ok := taskFromValue(item); ok {
			out = append(out, t)
		}
	}
	return out
}

func projectFromValue(v any) (PlainProject, bool) {
	o, ok := asObject(v)
	if !ok {
		return PlainProject{}, false
	}
	p := PlainProject{ID: o.str("id"), Name: o.str("name")}
	if items, ok := o.list("tasks"); ok {
		p.Tasks = tasksFromValues(items)
	}
	return p, true
}

func filtersFromValue(v any) (PlainFilters, bool) {
	o, ok := asObject(v)
	if !ok {
		return PlainFilters{}, false
	}
	return PlainFilters{
		Statuses: o.strings("statuses"),
		Tags:     o.strings("tags"),
		Search:   o.str("search"),
	}, true
}

func snapshotFromValue(v any) (PlainSnapshot, bool) {
	o, ok := asObject(v)
	if !ok {
		return PlainSnapshot{}, false
	}
	s := PlainSnapshot{ActiveProjectID: o.str("activeProjectId")}
	if items, ok := o.list("projects"); ok {
		s.Projects = make([]PlainProject, 0, len(items))
		for _, item := range items {
			if p, ok := projectFromValue(item); ok {
				s.Projects = append(s.Projects, p)
			}
		}
	}
	// A filters value that is not an object leaves every field at its default.
	s.Filters, _ = filtersFromValue(o["filters"])
	return s, true
}

func (p *PlainTask) UnmarshalJSON(b []byte) error {
	v, err := decodeValue(b)
	if err != nil {
		return err
	}
	t, ok := taskFromValue(v)
	if !ok {
		return fmt.Errorf("%w: task is not an object", ErrMalformed)
	}
	*p = t
	return nil
}

func (p *PlainProject) UnmarshalJSON(b []byte) error {
	v, err := decodeValue(b)
	if err != nil {
		return err
	}
	pr, ok := projectFromValue(v)
	if !ok {
		return fmt.Errorf("%w: project is not an object", ErrMalformed)
	}
	*p = pr
	return nil
}

func (f *PlainFilters) UnmarshalJSON(b []byte) error {
	v, err := decodeValue(b)
	if err != nil {
		return err
	}
	pf, ok := filtersFromValue(v)
	if !ok {
		return fmt.Errorf("%w: filters is not an object", ErrMalformed)
	}
	*f = pf
	return nil
}

func (s *PlainSnapshot) UnmarshalJSON(b []byte) error {
	v, err := decodeValue(b)
	if err != nil {
		return err
	}
	ps, ok := snapshotFromValue(v)
	if !ok {
		return fmt.Errorf("%w: snapshot is not an object", ErrMalformed)
	}
	*s = ps
	return nil
}
