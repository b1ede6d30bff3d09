// Package tracker holds the working AppData between a load and the saves
// that follow each action. A Tracker has a single owner; it does no locking.
package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/amirbrooks/todo-vault/internal/envelope"
	"github.com/amirbrooks/todo-vault/internal/logging"
	"github.com/amirbrooks/todo-vault/internal/model"
	"github.com/amirbrooks/todo-vault/internal/store"
)

const DefaultProjectName = "My project"

var timeNow = time.Now

type Tracker struct {
	gw     *store.Gateway
	env    *envelope.Envelope
	newID  model.IDGenerator
	now    func() time.Time
	logger *log.Logger
	data   model.AppData
}

type Option func(*Tracker)

func WithIDGenerator(gen model.IDGenerator) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func WithEnvelope(env *envelope.Envelope) Option {
	return func(t *Tracker) {
		if env != nil {
			t.env = env
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = logging.OrDiscard(l) }
}

// New returns a tracker holding the initial snapshot. Call Load to read
// the gateway's slot.
func New(gw *store.Gateway, opts ...Option) *Tracker {
	t := &Tracker{
		gw:     gw,
		env:    envelope.New(),
		newID:  model.ULIDGenerator,
		now:    timeNow,
		logger: logging.Discard(),
		data:   store.InitialData(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load replaces the working snapshot with the stored one, initializing the
// slot on first run. It reports whether the slot already existed.
func (t *Tracker) Load() bool {
	data, found := t.gw.LoadOrInit()
	t.data = data
	t.logger.Debug("snapshot loaded", "projects", len(data.Projects), "found", found)
	return found
}

// Data returns the working snapshot. Callers must not modify it.
func (t *Tracker) Data() model.AppData { return t.data }

// Err reports the failure of the most recent save, if any.
func (t *Tracker) Err() error { return t.gw.Err() }

func (t *Tracker) save() {
	t.gw.Save(t.data)
	if err := t.gw.Err(); err != nil {
		t.logger.Warn("changes kept in memory only", "err", err)
	}
}

func (t *Tracker) stamp() time.Time {
	return model.NormalizeTime(t.now())
}

func (t *Tracker) Projects() []model.Project { return t.data.Projects }

// ActiveProject returns nil when there are no projects.
func (t *Tracker) ActiveProject() *model.Project { return t.data.ActiveProject() }

// CreateProject appends a project and makes it active.
func (t *Tracker) CreateProject(name string) model.Project {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProjectName
	}
	p := model.NewProject(t.newID("project"), name)
	t.data.Projects = append(t.data.Projects, p)
	t.data.ActiveProjectID = p.ID
	t.save()
	return p
}

// UseProject selects a project by id or, failing that, by exact name.
func (t *Tracker) UseProject(ref string) (model.Project, error) {
	p := t.findProject(ref)
	if p == nil {
		return model.Project{}, fmt.Errorf("%w: project %q", model.ErrNotFound, ref)
	}
	t.data.ActiveProjectID = p.ID
	t.save()
	return *p, nil
}

func (t *Tracker) findProject(ref string) *model.Project {
	ref = strings.TrimSpace(ref)
	if p := t.data.ProjectByID(ref); p != nil {
		return p
	}
	for i := range t.data.Projects {
		if t.data.Projects[i].Name == ref {
			return &t.data.Projects[i]
		}
	}
	return nil
}

// AddTask appends a top-level task to the active project, creating a
// project first when there is none.
func (t *Tracker) AddTask(title, tagsInput string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", model.ErrInvalid)
	}
	if len(t.data.Projects) == 0 {
		p := model.NewProject(t.newID("project"), DefaultProjectName)
		t.data.Projects = append(t.data.Projects, p)
		t.data.ActiveProjectID = p.ID
		t.logger.Info("created default project", "id", p.ID)
	}
	task := model.NewTask(t.newID("task"), title, model.ParseTags(tagsInput), t.stamp())
	p := t.data.ActiveProject()
	p.Tasks = append(p.Tasks, task)
	t.save()
	return task, nil
}

// AddSubtask appends a child to the task parentID in the active project.
func (t *Tracker) AddSubtask(parentID, title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", model.ErrInvalid)
	}
	parent, err := t.task(parentID)
	if err != nil {
		return model.Task{}, err
	}
	sub := model.NewTask(t.newID("task"), title, nil, t.stamp())
	parent.Subtasks = append(parent.Subtasks, sub)
	t.save()
	return sub, nil
}

// EditTask replaces the title and the tags of a task.
func (t *Tracker) EditTask(id, title, tagsInput string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", model.ErrInvalid)
	}
	task, err := t.task(id)
	if err != nil {
		return model.Task{}, err
	}
	task.Title = title
	task.Tags = model.ParseTags(tagsInput)
	task.Touch(t.stamp())
	out := *task
	t.save()
	return out, nil
}

func (t *Tracker) SetStatus(id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("%w: unknown status %q", model.ErrInvalid, status)
	}
	task, err := t.task(id)
	if err != nil {
		return model.Task{}, err
	}
	task.Status = status
	task.Touch(t.stamp())
	out := *task
	t.save()
	return out, nil
}

// DeleteTask removes the task and its whole subtree.
func (t *Tracker) DeleteTask(id string) error {
	task, err := t.task(id)
	if err != nil {
		return err
	}
	t.data.ActiveProject().RemoveTask(task.ID)
	t.save()
	return nil
}

// Task looks a task up anywhere in the active project's tree, by full id or
// by a unique id prefix.
func (t *Tracker) Task(id string) (model.Task, error) {
	task, err := t.task(id)
	if err != nil {
		return model.Task{}, err
	}
	return *task, nil
}

func (t *Tracker) task(id string) (*model.Task, error) {
	p := t.data.ActiveProject()
	if p == nil {
		return nil, fmt.Errorf("%w: task %q", model.ErrNotFound, id)
	}
	id = strings.TrimSpace(id)
	if task := p.FindTask(id); task != nil {
		return task, nil
	}
	matches := p.MatchTasks(id)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: task %q", model.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		return nil, &model.MatchConflictError{Prefix: id, Matches: ids}
	}
}

func (t *Tracker) Filters() model.Filters { return t.data.Filters }

func (t *Tracker) SetFilters(f model.Filters) error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown status %q", model.ErrInvalid, s)
		}
	}
	if f.Statuses == nil {
		f.Statuses = []model.Status{}
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	t.data.Filters = f
	t.save()
	return nil
}

func (t *Tracker) ResetFilters() {
	t.data.Filters = store.InitialData().Filters
	t.save()
}

// FilteredTasks returns the active project's top-level tasks that pass the
// current filters.
func (t *Tracker) FilteredTasks() []model.Task {
	p := t.data.ActiveProject()
	if p == nil {
		return []model.Task{}
	}
	return p.FilterTasks(t.data.Filters)
}

// Tags lists every tag used in the active project.
func (t *Tracker) Tags() []string {
	p := t.data.ActiveProject()
	if p == nil {
		return []string{}
	}
	return p.Tags()
}

// Export encrypts the whole working snapshot.
func (t *Tracker) Export(passphrase string) (string, error) {
	return t.env.Encrypt(t.data, passphrase)
}

// Import replaces the working snapshot with the token's content and saves
// it. On error nothing changes.
func (t *Tracker) Import(token, passphrase string) error {
	data, err := t.env.Decrypt(token, passphrase)
	if err != nil {
		return err
	}
	if data.Projects == nil {
		data.Projects = []model.Project{}
	}
	t.data = data
	t.logger.Info("snapshot imported", "projects", len(data.Projects))
	t.save()
	return nil
}
