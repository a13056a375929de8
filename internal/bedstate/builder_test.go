package bedstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

func TestBuilder_OccupancyLatestWins(t *testing.T) {
	b := NewBuilder()
	t0 := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	require.True(t, b.ApplyOccupancy(domain.OccupancyEvent{BedID: "1", Status: domain.OccupancyOccupied, Timestamp: t0}))
	require.True(t, b.ApplyOccupancy(domain.OccupancyEvent{BedID: "1", Status: domain.OccupancyFree, Timestamp: t0.Add(2 * time.Hour)}))
	// older event arrives late
	assert.False(t, b.ApplyOccupancy(domain.OccupancyEvent{BedID: "1", Status: domain.OccupancyOccupied, Timestamp: t0.Add(time.Hour)}))

	beds := b.Beds()
	require.Len(t, beds, 1)
	bed := beds[0]
	assert.Equal(t, domain.OccupancyFree, bed.OccupancyStatus)
	require.NotNil(t, bed.LastOccupiedTime)
	assert.Equal(t, t0, *bed.LastOccupiedTime)
	require.NotNil(t, bed.LastFreedTime)
	assert.Equal(t, t0.Add(2*time.Hour), *bed.LastFreedTime)
}

func TestBuilder_TieGoesToLaterInsertion(t *testing.T) {
	b := NewBuilder()
	ts := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	b.ApplyOccupancy(domain.OccupancyEvent{BedID: "1", Status: domain.OccupancyFree, Timestamp: ts})
	assert.True(t, b.ApplyOccupancy(domain.OccupancyEvent{BedID: "1", Status: domain.OccupancyReserved, Timestamp: ts}))
	assert.Equal(t, domain.OccupancyReserved, b.Beds()[0].OccupancyStatus)
}

func TestBuilder_Status(t *testing.T) {
	b := NewBuilder()
	ts := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	b.ApplyStatus(domain.StatusEvent{BedID: "2", Status: domain.BedStatusOther, Description: "rail", Timestamp: ts, CheckedAt: &ts, Actor: "Rasa"})
	b.ApplyStatus(domain.StatusEvent{BedID: "2", Status: domain.BedStatusMessy, Timestamp: ts.Add(-time.Minute)})

	bed := b.Beds()[0]
	assert.Equal(t, domain.BedStatusOther, bed.CurrentStatus)
	assert.Equal(t, "rail", bed.ProblemDescription)
	assert.Equal(t, "Rasa", bed.LastCheckedBy)
	assert.Equal(t, ts, *bed.LastCheckedTime)
	assert.Equal(t, domain.OccupancyUnknown, bed.OccupancyStatus)
}

func TestBuilder_ApplyRows(t *testing.T) {
	b := NewBuilder()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	rows := []domain.Row{
		{Order: 0, BedLabel: "12", TerminalStatusText: "❌ needs cleaning", OccupancyText: "Occupied", LastCheckedText: "2024-06-10 09:00"},
		{Order: 1, TerminalStatusText: "Other: broken light", OccupancyText: "free"},
	}
	b.ApplyRows(rows, now)
	beds := b.Beds()
	require.Len(t, beds, 2)

	assert.Equal(t, "12", beds[0].BedID)
	assert.Equal(t, "12", beds[0].Label)
	assert.Equal(t, domain.BedStatusMessy, beds[0].CurrentStatus)
	assert.Equal(t, domain.OccupancyOccupied, beds[0].OccupancyStatus)
	require.NotNil(t, beds[0].LastCheckedTime)
	assert.Equal(t, 9, beds[0].LastCheckedTime.Hour())

	assert.Equal(t, "row-1", beds[1].BedID)
	assert.Equal(t, domain.BedStatusOther, beds[1].CurrentStatus)
	assert.Equal(t, "Other: broken light", beds[1].ProblemDescription)
	assert.Nil(t, beds[1].LastCheckedTime)

	// next snapshot: bed 12 freed
	rows[0].OccupancyText = "Laisva"
	b.ApplyRows(rows, now.Add(time.Minute))
	bed := b.Beds()[0]
	assert.Equal(t, domain.OccupancyFree, bed.OccupancyStatus)
	require.NotNil(t, bed.LastFreedTime)
	assert.Equal(t, now.Add(time.Minute), *bed.LastFreedTime)
}

func TestParseText(t *testing.T) {
	assert.Equal(t, domain.BedStatusClean, ParseStatusText(""))
	assert.Equal(t, domain.BedStatusClean, ParseStatusText("✅ Clean"))
	assert.Equal(t, domain.BedStatusClean, ParseStatusText("Clean"))
	assert.Equal(t, domain.BedStatusMessy, ParseStatusText("Dirty"))
	assert.Equal(t, domain.BedStatusMissingEquipment, ParseStatusText("Missing equipment"))
	assert.Equal(t, domain.BedStatusOther, ParseStatusText("Problem with bed"))

	assert.Equal(t, domain.OccupancyOccupied, ParseOccupancyText("Užimta"))
	assert.Equal(t, domain.OccupancyCleaning, ParseOccupancyText("cleaning"))
	assert.Equal(t, domain.OccupancyUnknown, ParseOccupancyText(""))
}
