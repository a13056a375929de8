package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// GenerateOccurrences expands one template into dated occurrences around referenceDate.
// Fixed daily start times take precedence over startAt+frequency. Occurrences more than
// the grace period in the past are skipped; malformed input yields fewer (or no) occurrences.
func GenerateOccurrences(tpl domain.RecurringTemplate, referenceDate time.Time) []domain.Task {
	return generate(tpl, referenceDate, tpl.Lookahead())
}

func generate(tpl domain.RecurringTemplate, ref time.Time, lookaheadDays int) []domain.Task {
	if tpl.SeriesID == "" {
		return nil
	}
	minDue := ref.Add(-time.Duration(tpl.GracePeriod()) * time.Minute)

	var dues []time.Time
	if len(tpl.StartTimes) > 0 {
		dues = fixedTimeDues(tpl.StartTimes, ref, lookaheadDays, minDue)
	} else if start := domain.ParseTimestamp(tpl.StartAt); start != nil {
		end := ref.AddDate(0, 0, lookaheadDays)
		dues = intervalDues(*start, tpl.FrequencyMinutes, minDue, end)
	}

	out := make([]domain.Task, 0, len(dues))
	for _, due := range dues {
		out = append(out, occurrence(tpl, due, ref))
	}
	return out
}

func fixedTimeDues(startTimes []string, ref time.Time, lookaheadDays int, minDue time.Time) []time.Time {
	type clock struct{ h, m int }
	clocks := make([]clock, 0, len(startTimes))
	for _, s := range startTimes {
		h, m, ok := parseClock(s)
		if !ok {
			continue
		}
		clocks = append(clocks, clock{h, m})
	}

	loc := ref.Location()
	var dues []time.Time
	for offset := 0; offset <= lookaheadDays; offset++ {
		day := time.Date(ref.Year(), ref.Month(), ref.Day()+offset, 0, 0, 0, 0, loc)
		for _, c := range clocks {
			due := time.Date(day.Year(), day.Month(), day.Day(), c.h, c.m, 0, 0, loc)
			if due.Before(minDue) {
				continue
			}
			dues = append(dues, due)
		}
	}
	return dues
}

func intervalDues(start time.Time, frequencyMinutes int, minDue, end time.Time) []time.Time {
	if frequencyMinutes <= 0 {
		if start.Before(minDue) {
			return nil
		}
		return []time.Time{start}
	}
	step := time.Duration(frequencyMinutes) * time.Minute
	first := start
	if first.Before(minDue) {
		// 跳过过期的前缀，保持与 startAt 对齐
		n := (minDue.Sub(start) + step - 1) / step
		first = start.Add(n * step)
	}
	var dues []time.Time
	for due := first; !due.After(end); due = due.Add(step) {
		dues = append(dues, due)
	}
	return dues
}

// parseClock accepts "HH:MM" (or "H:MM") in 24h form.
func parseClock(s string) (int, int, bool) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(ms) != 2 || hs == "" || len(hs) > 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// OccurrenceID seriesId + "-" + ISO(dueAt)
func OccurrenceID(seriesID string, due time.Time) string {
	return seriesID + "-" + domain.FormatISO(due)
}

func occurrence(tpl domain.RecurringTemplate, due, ref time.Time) domain.Task {
	recurrence := domain.ParseRecurrence(string(tpl.Recurrence))
	if recurrence == domain.RecurrenceNone {
		if len(tpl.StartTimes) > 0 {
			recurrence = domain.RecurrenceDaily
		} else if tpl.FrequencyMinutes > 0 {
			recurrence = domain.RecurrenceCustom
		}
	}
	meta := map[string]any{}
	if tpl.FrequencyMinutes > 0 {
		meta[domain.MetaRecurringFrequencyMinutes] = tpl.FrequencyMinutes
	}
	if tpl.FrequencyLabel != "" {
		meta[domain.MetaRecurringFrequencyLabel] = tpl.FrequencyLabel
	}
	dueAt := due
	return domain.Task{
		ID:              OccurrenceID(tpl.SeriesID, due),
		SeriesID:        tpl.SeriesID,
		Source:          domain.TaskSourceScheduler,
		Title:           tpl.Title,
		Description:     tpl.Description,
		Zone:            tpl.Zone,
		ZoneLabel:       tpl.ZoneLabel,
		Responsible:     tpl.Responsible,
		Priority:        domain.NormalizePriority(tpl.Priority),
		Status:          domain.TaskStatusPlanned,
		DueAt:           &dueAt,
		Recurrence:      recurrence,
		RecurrenceLabel: tpl.RecurrenceLabel,
		Metadata:        meta,
		CreatedAt:       ref,
		UpdatedAt:       ref,
	}
}
