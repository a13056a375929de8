package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

func TestMaterializeRecurringTasks_Idempotent(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s := store.NewTaskStore()
	req := MaterializeRequest{
		Store: s,
		Templates: []domain.RecurringTemplate{{
			SeriesID:         "rounds",
			StartAt:          "2024-06-10T11:55:00Z",
			FrequencyMinutes: 120,
		}},
		ReferenceDate: now,
	}

	created, err := MaterializeRecurringTasks(req)
	require.NoError(t, err)
	require.NotEmpty(t, created)
	count := s.Len()
	assert.Equal(t, len(created), count)

	created, err = MaterializeRecurringTasks(req)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, count, s.Len())

	seen := map[string]bool{}
	for _, task := range s.All() {
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
		assert.Empty(t, task.History)
	}
}

func TestMaterialize_UpdatesExistingInPlace(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s := store.NewTaskStore()
	tpl := domain.RecurringTemplate{
		SeriesID:      "linen",
		StartTimes:    []string{"18:00"},
		Priority:      3,
		Responsible:   "Ward A",
		LookaheadDays: intPtr(0),
	}
	_, err := Materialize(MaterializeRequest{Store: s, Templates: []domain.RecurringTemplate{tpl}, ReferenceDate: now})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	tpl.Priority = 1
	tpl.Responsible = "Ward B"
	res, err := Materialize(MaterializeRequest{Store: s, Templates: []domain.RecurringTemplate{tpl}, ReferenceDate: now})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, res.Updated)

	task := s.All()[0]
	assert.Equal(t, domain.PriorityCritical, task.Priority)
	assert.Equal(t, "Ward B", task.Responsible)
	require.Len(t, task.History, 1)
	assert.Equal(t, domain.HistoryRescheduled, task.History[0].Type)
}

func TestMaterialize_PrunesStaleSchedulerTasks(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s := store.NewTaskStore()
	old := now.Add(-3 * time.Hour)
	require.NoError(t, s.Add(domain.Task{ID: "old-sched", SeriesID: "gone", Source: domain.TaskSourceScheduler, DueAt: &old}))
	require.NoError(t, s.Add(domain.Task{ID: "old-local", Source: domain.TaskSourceLocal, DueAt: &old}))
	recent := now.Add(-30 * time.Minute)
	require.NoError(t, s.Add(domain.Task{ID: "recent-sched", Source: domain.TaskSourceScheduler, DueAt: &recent}))

	res, err := Materialize(MaterializeRequest{Store: s, ReferenceDate: now, RetentionMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"old-sched"}, res.Pruned)

	_, ok := s.Get("old-local")
	assert.True(t, ok)
	_, ok = s.Get("recent-sched")
	assert.True(t, ok)
}

func TestMaterialize_NilStore(t *testing.T) {
	_, err := MaterializeRecurringTasks(MaterializeRequest{})
	assert.ErrorIs(t, err, ErrNilStore)
}
