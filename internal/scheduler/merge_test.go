package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

func at(t time.Time) *time.Time { return &t }

func TestMergeRecurringTasksForDisplay_Representative(t *testing.T) {
	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "S-late", SeriesID: "S", DueAt: at(base.Add(35 * time.Minute)), RecurrenceLabel: "Daily"},
		{ID: "S-early", SeriesID: "S", DueAt: at(base.Add(5 * time.Minute)), RecurrenceLabel: "Daily",
			Metadata: map[string]any{domain.MetaRecurringFrequencyLabel: "every 30 min"}},
	}

	merged := MergeRecurringTasksForDisplay(tasks)
	require.Len(t, merged, 1)
	rep := merged[0]
	assert.Equal(t, "S", rep.ID)
	assert.True(t, rep.DueAt.Equal(base.Add(5*time.Minute)))
	assert.Equal(t, 2, rep.Metadata[domain.MetaRecurringOccurrencesCount])
	assert.Equal(t, []string{"S-early", "S-late"}, rep.Metadata[domain.MetaRecurringSourceTaskIDs])
	assert.Equal(t, "every 30 min", rep.RecurrenceLabel)

	// inputs untouched
	assert.Equal(t, "S-early", tasks[1].ID)
	assert.NotContains(t, tasks[1].Metadata, domain.MetaRecurringOccurrencesCount)
}

func TestMergeRecurringTasksForDisplay_TieBreakAndOrder(t *testing.T) {
	due := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "one-off-1"},
		{ID: "A-b", SeriesID: "A", DueAt: at(due), RecurrenceLabel: "Per shift"},
		{ID: "B-x", SeriesID: "B"},
		{ID: "A-a", SeriesID: "A", DueAt: at(due)},
		{ID: "one-off-2"},
		{ID: "B-y", SeriesID: "B", DueAt: at(due)},
	}
	merged := MergeRecurringTasksForDisplay(tasks)

	ids := make([]string, len(merged))
	for i, m := range merged {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"one-off-1", "A", "B", "one-off-2"}, ids)

	// equal due → smaller id; absent due sorts last
	assert.Equal(t, []string{"A-a", "A-b"}, merged[1].Metadata[domain.MetaRecurringSourceTaskIDs])
	assert.Empty(t, merged[1].RecurrenceLabel)
	assert.Equal(t, []string{"B-y", "B-x"}, merged[2].Metadata[domain.MetaRecurringSourceTaskIDs])
}

func TestMergeRecurringTasksForDisplay_StableOnRemerge(t *testing.T) {
	due := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "S-1", SeriesID: "S", DueAt: at(due)},
		{ID: "S-2", SeriesID: "S", DueAt: at(due.Add(time.Hour))},
	}
	first := MergeRecurringTasksForDisplay(tasks)
	second := MergeRecurringTasksForDisplay(tasks)
	assert.Equal(t, first, second)
}
