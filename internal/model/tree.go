package model

import (
	"sort"
	"strings"
)

// Walk visits tasks in pre-order. Returning false from fn skips the
// children of that task.
func Walk(tasks []Task, fn func(t *Task, depth int) bool) {
	walk(tasks, 0, fn)
}

func walk(tasks []Task, depth int, fn func(t *Task, depth int) bool) {
	for i := range tasks {
		if fn(&tasks[i], depth) {
			walk(tasks[i].Subtasks, depth+1, fn)
		}
	}
}

// FindTask searches the project tree depth-first. The returned pointer is
// valid until the containing slice is next appended to or shrunk.
func (p *Project) FindTask(id string) *Task {
	return findTask(p.Tasks, id)
}

func findTask(tasks []Task, id string) *Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
		if found := findTask(tasks[i].Subtasks, id); found != nil {
			return found
		}
	}
	return nil
}

// MatchTasks returns every task in the tree whose id starts with prefix,
// ignoring case, in pre-order.
func (p *Project) MatchTasks(prefix string) []*Task {
	prefix = strings.ToLower(prefix)
	var out []*Task
	if prefix == "" {
		return out
	}
	Walk(p.Tasks, func(t *Task, _ int) bool {
		if strings.HasPrefix(strings.ToLower(t.ID), prefix) {
			out = append(out, t)
		}
		return true
	})
	return out
}

// RemoveTask detaches the task and its subtree. It reports whether a task
// with id was found.
func (p *Project) RemoveTask(id string) bool {
	var ok bool
	p.Tasks, ok = removeTask(p.Tasks, id)
	return ok
}

func removeTask(tasks []Task, id string) ([]Task, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			out := make([]Task, 0, len(tasks)-1)
			out = append(out, tasks[:i]...)
			return append(out, tasks[i+1:]...), true
		}
	}
	for i := range tasks {
		if sub, ok := removeTask(tasks[i].Subtasks, id); ok {
			tasks[i].Subtasks = sub
			return tasks, true
		}
	}
	return tasks, false
}

// Tags returns every tag used anywhere in the project tree, sorted.
func (p *Project) Tags() []string {
	set := map[string]bool{}
	Walk(p.Tasks, func(t *Task, _ int) bool {
		for _, tag := range t.Tags {
			set[tag] = true
		}
		return true
	})
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// FilterTasks applies f to top-level tasks only; subtasks travel with their parent.
func (p *Project) FilterTasks(f Filters) []Task {
	out := []Task{}
	for _, t := range p.Tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of tasks in the tree, subtasks included.
func (p *Project) Count() int {
	n := 0
	Walk(p.Tasks, func(*Task, int) bool {
		n++
		return true
	})
	return n
}
