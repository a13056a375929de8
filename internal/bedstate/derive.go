package bedstate

import (
	"strings"
	"time"
	"unicode"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

var statusKeywords = []struct {
	status   domain.BedStatus
	keywords []string
}{
	{domain.BedStatusMissingEquipment, []string{"missing", "equipment", "trūksta", "truksta", "įrang"}},
	{domain.BedStatusMessy, []string{"messy", "dirty", "cleaning", "needs clean", "❌", "netvark", "sutvarky", "valyti"}},
	{domain.BedStatusOther, []string{"other", "problem", "kita", "problema"}},
}

var occupancyKeywords = []struct {
	status   domain.OccupancyStatus
	keywords []string
}{
	{domain.OccupancyReserved, []string{"reserved", "rezerv"}},
	{domain.OccupancyCleaning, []string{"cleaning", "valoma", "tvarkoma"}},
	{domain.OccupancyOccupied, []string{"occupied", "užimta", "uzimta", "busy"}},
	{domain.OccupancyFree, []string{"free", "laisva", "available", "vacant"}},
}

// ParseStatusText maps free-form status text to a bed status; text without keywords is clean.
func ParseStatusText(text string) domain.BedStatus {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" || strings.HasPrefix(lower, "✅") || strings.HasPrefix(lower, "tvarkinga") {
		return domain.BedStatusClean
	}
	for _, entry := range statusKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.status
			}
		}
	}
	return domain.BedStatusClean
}

// ParseOccupancyText maps free-form occupancy text, unknown otherwise.
func ParseOccupancyText(text string) domain.OccupancyStatus {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, entry := range occupancyKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.status
			}
		}
	}
	return domain.OccupancyUnknown
}

// EventsFromRow derives one occupancy and one status event from a spreadsheet row.
// The row's last-checked text, when parseable, becomes the check time.
func EventsFromRow(row domain.Row, now time.Time) (domain.OccupancyEvent, domain.StatusEvent) {
	bedID := row.EntityKey()
	occ := domain.OccupancyEvent{
		BedID:     bedID,
		Status:    ParseOccupancyText(row.OccupancyText),
		Timestamp: now,
	}
	status := ParseStatusText(row.TerminalStatusText)
	ev := domain.StatusEvent{
		BedID:     bedID,
		Status:    status,
		Text:      strings.TrimSpace(row.TerminalStatusText),
		Timestamp: now,
		CheckedAt: domain.ParseTimestamp(row.LastCheckedText),
	}
	if status == domain.BedStatusOther {
		ev.Description = stripMarker(row.TerminalStatusText)
	}
	return occ, ev
}

func stripMarker(text string) string {
	return strings.TrimSpace(strings.TrimLeftFunc(strings.TrimSpace(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
