package scheduler

import (
	"sort"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// MergeRecurringTasksForDisplay collapses every series into one display entry: the earliest
// occurrence (ties by id), re-identified as the series id. One-off tasks pass through.
// Output keeps the order in which each entry first appears in tasks; inputs are not mutated.
func MergeRecurringTasksForDisplay(tasks []domain.Task) []domain.Task {
	groups := make(map[string][]domain.Task)
	var order []string // "" marks a one-off at that position
	var oneOffs []domain.Task

	for _, t := range tasks {
		if t.SeriesID == "" {
			order = append(order, "")
			oneOffs = append(oneOffs, t)
			continue
		}
		if _, seen := groups[t.SeriesID]; !seen {
			order = append(order, t.SeriesID)
		}
		groups[t.SeriesID] = append(groups[t.SeriesID], t)
	}

	out := make([]domain.Task, 0, len(order))
	next := 0
	for _, key := range order {
		if key == "" {
			out = append(out, oneOffs[next].Clone())
			next++
			continue
		}
		out = append(out, representative(key, groups[key]))
	}
	return out
}

func representative(seriesID string, group []domain.Task) domain.Task {
	sorted := append([]domain.Task(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].DueAt, sorted[j].DueAt
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return sorted[i].ID < sorted[j].ID
	})

	ids := make([]string, len(sorted))
	for i, t := range sorted {
		ids[i] = t.ID
	}

	rep := sorted[0].Clone()
	rep.ID = seriesID
	if rep.Metadata == nil {
		rep.Metadata = map[string]any{}
	}
	rep.Metadata[domain.MetaRecurringOccurrencesCount] = len(sorted)
	rep.Metadata[domain.MetaRecurringSourceTaskIDs] = ids
	if label, ok := rep.Metadata[domain.MetaRecurringFrequencyLabel].(string); ok && label != "" {
		rep.RecurrenceLabel = label
	}
	return rep
}
