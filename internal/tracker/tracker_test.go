package tracker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirbrooks/todo-vault/internal/envelope"
	"github.com/amirbrooks/todo-vault/internal/kv"
	"github.com/amirbrooks/todo-vault/internal/model"
	"github.com/amirbrooks/todo-vault/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func seqIDs() model.IDGenerator {
	n := 0
	return func(kind string) string {
		n++
		return fmt.Sprintf("%s-%d", kind, n)
	}
}

type fixture struct {
	mem   *kv.Memory
	clock *clock
	tr    *Tracker
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := kv.NewMemory(0)
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 123_456_789, time.UTC)}
	tr := New(store.New(mem),
		WithIDGenerator(seqIDs()),
		WithClock(c.now),
		WithEnvelope(envelope.New(envelope.WithWorkFactor(10))),
	)
	tr.Load()
	return fixture{mem: mem, clock: c, tr: tr}
}

// reload reads the slot back through a fresh gateway.
func (f fixture) reload() model.AppData {
	return store.New(f.mem).Load()
}

func TestLoadInitializesSlot(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, store.InitialData(), f.tr.Data())
	_, err := f.mem.Get(store.DefaultKey)
	assert.NoError(t, err)

	again := New(store.New(f.mem))
	assert.True(t, again.Load())
}

func TestAddTaskCreatesProjectWhenNoneExist(t *testing.T) {
	f := newFixture(t)

	task, err := f.tr.AddTask("  Write report ", "work, urgent, Work")
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, []string{"work", "urgent"}, task.Tags)
	assert.Equal(t, model.StatusTodo, task.Status)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 123_000_000, time.UTC), task.CreatedAt)

	data := f.reload()
	require.Len(t, data.Projects, 1)
	assert.Equal(t, DefaultProjectName, data.Projects[0].Name)
	assert.Equal(t, data.Projects[0].ID, data.ActiveProjectID)
	require.Len(t, data.Projects[0].Tasks, 1)
	assert.Equal(t, task, data.Projects[0].Tasks[0])
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.tr.AddTask("   ", "x")
	assert.True(t, errors.Is(err, model.ErrInvalid))
	assert.Empty(t, f.tr.Projects())
}

func TestProjectsAndActiveSelection(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.tr.ActiveProject())

	home := f.tr.CreateProject("Home")
	work := f.tr.CreateProject("")
	assert.Equal(t, DefaultProjectName, work.Name)
	assert.Equal(t, work.ID, f.tr.ActiveProject().ID)

	_, err := f.tr.AddTask("Fix sink", "")
	require.NoError(t, err)
	assert.Len(t, f.tr.ActiveProject().Tasks, 1)

	got, err := f.tr.UseProject("Home")
	require.NoError(t, err)
	assert.Equal(t, home.ID, got.ID)
	assert.Empty(t, f.tr.ActiveProject().Tasks)
	assert.Equal(t, home.ID, f.reload().ActiveProjectID)

	_, err = f.tr.UseProject("nope")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSubtasksEditStatusDelete(t *testing.T) {
	f := newFixture(t)
	parent, err := f.tr.AddTask("Move house", "home")
	require.NoError(t, err)
	sub, err := f.tr.AddSubtask(parent.ID, "Book van")
	require.NoError(t, err)
	leaf, err := f.tr.AddSubtask(sub.ID, "Compare prices")
	require.NoError(t, err)

	f.clock.advance(time.Hour)
	edited, err := f.tr.EditTask(leaf.ID, "Compare van prices", "money")
	require.NoError(t, err)
	assert.Equal(t, []string{"money"}, edited.Tags)
	assert.Equal(t, leaf.CreatedAt.Add(time.Hour), edited.UpdatedAt)

	done, err := f.tr.SetStatus(sub.ID, model.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)

	data := f.reload()
	tree := data.Projects[0].Tasks[0]
	assert.Equal(t, "Compare van prices", tree.Subtasks[0].Subtasks[0].Title)
	assert.Equal(t, model.StatusDone, tree.Subtasks[0].Status)
	assert.Equal(t, []string{"home", "money"}, f.tr.Tags())

	require.NoError(t, f.tr.DeleteTask(sub.ID))
	data = f.reload()
	assert.Empty(t, data.Projects[0].Tasks[0].Subtasks)
	assert.Equal(t, 1, data.Projects[0].Count())
}

func TestUnknownIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.tr.AddSubtask("missing", "x")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = f.tr.AddTask("One", "")
	require.NoError(t, err)
	_, err = f.tr.EditTask("missing", "x", "")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	_, err = f.tr.SetStatus("missing", model.StatusDone)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(f.tr.DeleteTask("missing"), model.ErrNotFound))

	_, err = f.tr.SetStatus("task-2", model.Status("blocked"))
	assert.True(t, errors.Is(err, model.ErrInvalid))
}

func TestTouchNeverPrecedesCreation(t *testing.T) {
	f := newFixture(t)
	task, err := f.tr.AddTask("Clock skew", "")
	require.NoError(t, err)

	f.clock.advance(-24 * time.Hour)
	got, err := f.tr.SetStatus(task.ID, model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, task.CreatedAt, got.UpdatedAt)
}

func TestFilters(t *testing.T) {
	f := newFixture(t)
	a, _ := f.tr.AddTask("Pay rent", "home, money")
	_, _ = f.tr.AddTask("Write tests", "work")
	c, _ := f.tr.AddTask("Pay invoice", "work, money")
	_, err := f.tr.SetStatus(c.ID, model.StatusDone)
	require.NoError(t, err)

	require.NoError(t, f.tr.SetFilters(model.Filters{
		Statuses: []model.Status{model.StatusTodo},
		Tags:     []string{"money"},
		Search:   "PAY",
	}))
	got := f.tr.FilteredTasks()
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, "PAY", f.reload().Filters.Search)

	assert.Error(t, f.tr.SetFilters(model.Filters{Statuses: []model.Status{"later"}}))

	f.tr.ResetFilters()
	assert.Equal(t, model.DefaultFilters(), f.tr.Filters())
	assert.Len(t, f.tr.FilteredTasks(), 3)
	assert.Equal(t, model.DefaultFilters(), f.reload().Filters)
}

func TestExportImport(t *testing.T) {
	f := newFixture(t)
	task, err := f.tr.AddTask("Secret plan", "private")
	require.NoError(t, err)
	_, err = f.tr.AddSubtask(task.ID, "Step one")
	require.NoError(t, err)
	want := f.tr.Data()

	token, err := f.tr.Export("s3cret")
	require.NoError(t, err)
	assert.NotContains(t, token, "Secret plan")

	g := newFixture(t)
	require.NoError(t, g.tr.Import(token, "s3cret"))
	assert.Equal(t, want, g.tr.Data())
	assert.Equal(t, want, g.reload())
}

func TestImportFailureLeavesStateAlone(t *testing.T) {
	f := newFixture(t)
	token, err := f.tr.Export("right")
	require.NoError(t, err)

	g := newFixture(t)
	_, err = g.tr.AddTask("Keep me", "")
	require.NoError(t, err)
	before := g.tr.Data()

	err = g.tr.Import(token, "wrong")
	assert.True(t, errors.Is(err, envelope.ErrUnableToDecrypt))
	assert.Equal(t, before, g.tr.Data())
	assert.Equal(t, before, g.reload())
}

func TestSaveFailureKeepsWorkingCopy(t *testing.T) {
	mem := kv.NewMemory(150)
	tr := New(store.New(mem), WithIDGenerator(seqIDs()))
	tr.Load()
	require.NoError(t, tr.Err())

	task, err := tr.AddTask("A task whose title is long enough to push the snapshot past the quota", "")
	require.NoError(t, err)
	assert.True(t, errors.Is(tr.Err(), kv.ErrQuotaExceeded))
	assert.Equal(t, task.ID, tr.FilteredTasks()[0].ID)
	assert.Empty(t, store.New(mem).Load().Projects)
}

func TestTaskPrefixLookup(t *testing.T) {
	f := newFixture(t)
	ids := []string{"prj-1", "abc-1", "abc-2", "xyz-1"}
	n := 0
	f.tr.newID = func(string) string {
		id := ids[n]
		n++
		return id
	}
	f.tr.CreateProject("P")
	for _, title := range []string{"First", "Second", "Third"} {
		_, err := f.tr.AddTask(title, "")
		require.NoError(t, err)
	}

	got, err := f.tr.Task("XYZ")
	require.NoError(t, err)
	assert.Equal(t, "Third", got.Title)

	_, err = f.tr.SetStatus("abc", model.StatusDone)
	assert.True(t, errors.Is(err, model.ErrConflict))
	var conflict *model.MatchConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"abc-1", "abc-2"}, conflict.Matches)

	require.NoError(t, f.tr.DeleteTask("abc-2"))
	got, err = f.tr.Task("abc")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
	assert.Len(t, f.tr.ActiveProject().Tasks, 2)
}
