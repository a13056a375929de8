package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, PriorityMedium, NormalizePriority(0))
	assert.Equal(t, PriorityCritical, NormalizePriority(-7))
	assert.Equal(t, PriorityCritical, NormalizePriority(1))
	assert.Equal(t, PriorityHigh, NormalizePriority(2))
	assert.Equal(t, PriorityLow, NormalizePriority(99))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, TaskStatusPlanned, ParseStatus(""))
	assert.Equal(t, TaskStatusPlanned, ParseStatus("whatever"))
	assert.Equal(t, TaskStatusPlanned, ParseStatus("pending"))
	assert.Equal(t, TaskStatusInProgress, ParseStatus("inProgress"))
	assert.Equal(t, TaskStatusInProgress, ParseStatus("in_progress"))
	assert.Equal(t, TaskStatusCompleted, ParseStatus(" Done "))
	assert.Equal(t, TaskStatusCancelled, ParseStatus("canceled"))
	assert.Equal(t, TaskStatusBlocked, ParseStatus("blocked"))
}

func TestParseRecurrence(t *testing.T) {
	assert.Equal(t, RecurrenceNone, ParseRecurrence(""))
	assert.Equal(t, RecurrenceNone, ParseRecurrence("hourly"))
	assert.Equal(t, RecurrencePerShift, ParseRecurrence("perShift"))
	assert.Equal(t, RecurrenceDaily, ParseRecurrence("DAILY"))
	assert.Equal(t, RecurrenceWeekly, ParseRecurrence("weekly"))
	assert.Equal(t, RecurrenceCustom, ParseRecurrence("custom"))
}

func TestParseTimestamp(t *testing.T) {
	assert.Nil(t, ParseTimestamp(""))
	assert.Nil(t, ParseTimestamp("not a date"))
	assert.Nil(t, ParseTimestamp("2024-13-45T99:00"))

	ts := ParseTimestamp("2024-03-01T08:30:00Z")
	require.NotNil(t, ts)
	assert.True(t, ts.Equal(time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)))

	ts = ParseTimestamp("2024-03-01 08:30")
	require.NotNil(t, ts)
	assert.Equal(t, 8, ts.Hour())
	assert.Equal(t, 30, ts.Minute())

	ts = ParseTimestamp("2024-03-01T08:30:00.250+02:00")
	require.NotNil(t, ts)
	assert.Equal(t, "2024-03-01T06:30:00.250Z", FormatISO(*ts))
}

func TestSameInstant(t *testing.T) {
	a := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	b := a.In(time.FixedZone("X", 3600))
	assert.True(t, SameInstant(nil, nil))
	assert.False(t, SameInstant(&a, nil))
	assert.True(t, SameInstant(&a, &b))
}
