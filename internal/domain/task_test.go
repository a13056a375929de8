package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_Normalizes(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	task := NewTask("t1", TaskFields{
		Title:      "Check oxygen",
		Source:     "bogus",
		Priority:   12,
		Status:     "unknown",
		DueAt:      "garbage",
		Recurrence: "sometimes",
	}, now)

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, TaskSourceLocal, task.Source)
	assert.Equal(t, PriorityLow, task.Priority)
	assert.Equal(t, TaskStatusPlanned, task.Status)
	assert.Nil(t, task.DueAt)
	assert.Equal(t, RecurrenceNone, task.Recurrence)
	assert.Equal(t, now, task.CreatedAt)
	assert.Equal(t, now, task.UpdatedAt)
}

func TestTaskClone_IsDeep(t *testing.T) {
	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	orig := Task{
		ID:       "a",
		DueAt:    &due,
		Metadata: map[string]any{"k": "v"},
		History:  []HistoryEntry{{ID: "h1"}},
	}
	cp := orig.Clone()
	cp.Metadata["k"] = "changed"
	cp.History[0].ID = "h2"
	*cp.DueAt = due.Add(time.Hour)

	assert.Equal(t, "v", orig.Metadata["k"])
	assert.Equal(t, "h1", orig.History[0].ID)
	assert.True(t, orig.DueAt.Equal(due))
}

func TestTaskPatch_Apply(t *testing.T) {
	task := NewTask("t1", TaskFields{Title: "A", Priority: 2, DueAt: "2024-05-01T10:00:00Z"}, time.Now())

	same := "2024-05-01T10:00:00Z"
	assert.False(t, TaskPatch{DueAt: &same}.Apply(&task))

	title := "B"
	prio := 0
	status := "done"
	changed := TaskPatch{Title: &title, Priority: &prio, Status: &status}.Apply(&task)
	require.True(t, changed)
	assert.Equal(t, "B", task.Title)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, TaskStatusCompleted, task.Status)

	bad := "nope"
	assert.True(t, TaskPatch{DueAt: &bad}.Apply(&task))
	assert.Nil(t, task.DueAt)
}

func TestRecurringTemplate_Defaults(t *testing.T) {
	neg := -1
	zero := 0
	tpl := RecurringTemplate{LookaheadDays: &neg, GracePeriodMinutes: &zero}
	assert.Equal(t, DefaultLookaheadDays, tpl.Lookahead())
	assert.Equal(t, 0, tpl.GracePeriod())
	assert.Equal(t, DefaultRetentionMinutes, tpl.Retention())
}

func TestParseBedStatusAndOccupancy(t *testing.T) {
	assert.Equal(t, BedStatusClean, ParseBedStatus(""))
	assert.Equal(t, BedStatusMessy, ParseBedStatus("messy"))
	assert.Equal(t, BedStatusOther, ParseBedStatus("broken"))
	assert.Equal(t, OccupancyOccupied, ParseOccupancy("occupied"))
	assert.Equal(t, OccupancyUnknown, ParseOccupancy(""))
}
