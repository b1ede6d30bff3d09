package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject() Project {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	root := NewTask("t1", "Write report", []string{"work"}, now)
	child := NewTask("t1a", "Collect numbers", []string{"data"}, now)
	child.Subtasks = append(child.Subtasks, NewTask("t1a1", "Query warehouse", []string{"data", "sql"}, now))
	root.Subtasks = append(root.Subtasks, child, NewTask("t1b", "Draft intro", nil, now))
	other := NewTask("t2", "Buy milk", []string{"home"}, now)
	other.Status = StatusDone
	p := NewProject("p1", "Main")
	p.Tasks = append(p.Tasks, root, other)
	return p
}

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]Status{
		"todo":        StatusTodo,
		" Doing ":     StatusInProgress,
		"in_progress": StatusInProgress,
		"wip":         StatusInProgress,
		"DONE":        StatusDone,
		"complete":    StatusDone,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("blocked")
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestParseTagsTrimsAndDedupes(t *testing.T) {
	got := ParseTags(" work, Home ,, work,home, urgent ")
	assert.Equal(t, []string{"work", "Home", "urgent"}, got)
	assert.Equal(t, []string{}, ParseTags("  , "))
}

func TestFindTaskSearchesSubtasks(t *testing.T) {
	p := sampleProject()

	found := p.FindTask("t1a1")
	require.NotNil(t, found)
	assert.Equal(t, "Query warehouse", found.Title)

	found.Title = "Query lake"
	assert.Equal(t, "Query lake", p.Tasks[0].Subtasks[0].Subtasks[0].Title)

	assert.Nil(t, p.FindTask("missing"))
}

func TestMatchTasksByPrefix(t *testing.T) {
	p := sampleProject()

	var ids []string
	for _, m := range p.MatchTasks("T1A") {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"t1a", "t1a1"}, ids)
	assert.Len(t, p.MatchTasks("t2"), 1)
	assert.Empty(t, p.MatchTasks(""))
	assert.Empty(t, p.MatchTasks("zz"))

	err := error(&MatchConflictError{Prefix: "t1a", Matches: ids})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "matches 2 tasks")
}

func TestRemoveTaskDropsSubtree(t *testing.T) {
	p := sampleProject()
	require.Equal(t, 5, p.Count())

	assert.True(t, p.RemoveTask("t1a"))
	assert.Equal(t, 3, p.Count())
	assert.Nil(t, p.FindTask("t1a1"))
	assert.Equal(t, "t1b", p.Tasks[0].Subtasks[0].ID)

	assert.True(t, p.RemoveTask("t2"))
	assert.Len(t, p.Tasks, 1)

	assert.False(t, p.RemoveTask("t2"))
}

func TestProjectTagsCoversWholeTree(t *testing.T) {
	p := sampleProject()
	assert.Equal(t, []string{"data", "home", "sql", "work"}, p.Tags())
}

func TestFilterTasksTopLevelOnly(t *testing.T) {
	p := sampleProject()

	all := p.FilterTasks(DefaultFilters())
	assert.Len(t, all, 2)

	done := p.FilterTasks(Filters{Statuses: []Status{StatusDone}})
	require.Len(t, done, 1)
	assert.Equal(t, "t2", done[0].ID)

	// "data" only appears on subtasks, so no top-level task matches.
	assert.Empty(t, p.FilterTasks(Filters{Tags: []string{"data"}}))

	bySearch := p.FilterTasks(Filters{Search: "  REPORT "})
	require.Len(t, bySearch, 1)
	assert.Equal(t, "t1", bySearch[0].ID)

	none := p.FilterTasks(Filters{Statuses: []Status{StatusTodo}, Tags: []string{"home"}})
	assert.Empty(t, none)
}

func TestTouchNeverPrecedesCreation(t *testing.T) {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	task := NewTask("x", "x", nil, created)

	task.Touch(created.Add(-time.Hour))
	assert.Equal(t, created, task.UpdatedAt)

	later := created.Add(time.Minute)
	task.Touch(later)
	assert.Equal(t, later, task.UpdatedAt)
}

func TestActiveProjectFallsBackToFirst(t *testing.T) {
	var d AppData
	assert.Nil(t, d.ActiveProject())

	d.Projects = []Project{NewProject("a", "A"), NewProject("b", "B")}
	assert.Equal(t, "a", d.ActiveProject().ID)

	d.ActiveProjectID = "b"
	assert.Equal(t, "b", d.ActiveProject().ID)

	d.ActiveProjectID = "gone"
	assert.Equal(t, "a", d.ActiveProject().ID)
}

func TestIDGenerators(t *testing.T) {
	gen, err := IDGeneratorFor("ulid")
	require.NoError(t, err)
	assert.Regexp(t, `^tsk_[0-9A-Z]{26}$`, gen("task"))
	assert.Regexp(t, `^prj_[0-9A-Z]{26}$`, gen("project"))

	gen, err = IDGeneratorFor("UUID")
	require.NoError(t, err)
	a, b := gen("task"), gen("task")
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	_, err = IDGeneratorFor("snowflake")
	assert.True(t, errors.Is(err, ErrInvalid))
}
