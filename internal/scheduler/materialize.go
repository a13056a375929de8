package scheduler

import (
	"errors"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

var ErrNilStore = errors.New("scheduler: task store is required")

// MaterializeRequest 一次物化的输入
type MaterializeRequest struct {
	Store         *store.TaskStore
	Templates     []domain.RecurringTemplate
	ReferenceDate time.Time
	// LookaheadDays > 0 overrides every template's own window.
	LookaheadDays int
	// RetentionMinutes > 0 overrides every template's own retention.
	RetentionMinutes int
}

// MaterializeResult created occurrences plus the ids pruned afterwards.
type MaterializeResult struct {
	Created []domain.Task
	Updated int
	Pruned  []string
}

// MaterializeRecurringTasks expands every template into the store and returns the newly
// created tasks. Existing occurrences are updated in place, then stale scheduler tasks are pruned.
func MaterializeRecurringTasks(req MaterializeRequest) ([]domain.Task, error) {
	res, err := Materialize(req)
	if err != nil {
		return nil, err
	}
	return res.Created, nil
}

// Materialize is MaterializeRecurringTasks with update and prune counts.
func Materialize(req MaterializeRequest) (MaterializeResult, error) {
	var res MaterializeResult
	if req.Store == nil {
		return res, ErrNilStore
	}
	ref := req.ReferenceDate
	if ref.IsZero() {
		ref = time.Now()
	}

	retention := make(map[string]int, len(req.Templates))
	for _, tpl := range req.Templates {
		lookahead := tpl.Lookahead()
		if req.LookaheadDays > 0 {
			lookahead = req.LookaheadDays
		}
		retention[tpl.SeriesID] = tpl.Retention()

		for _, occ := range generate(tpl, ref, lookahead) {
			if _, ok := req.Store.Get(occ.ID); ok {
				_, changed, err := req.Store.Update(occ.ID, syncOccurrence(occ), store.HistoryEvent{
					Type:        domain.HistoryRescheduled,
					Description: "recurring occurrence refreshed from template",
					Actor:       string(domain.TaskSourceScheduler),
				})
				if err == nil && changed {
					res.Updated++
				}
				continue
			}
			if err := req.Store.Add(occ); err != nil {
				continue
			}
			res.Created = append(res.Created, occ)
		}
	}

	res.Pruned = req.Store.RemoveWhere(func(t *domain.Task) bool {
		if t.Source != domain.TaskSourceScheduler || t.DueAt == nil {
			return false
		}
		minutes := domain.DefaultRetentionMinutes
		if r, ok := retention[t.SeriesID]; ok {
			minutes = r
		}
		if req.RetentionMinutes > 0 {
			minutes = req.RetentionMinutes
		}
		return t.DueAt.Before(ref.Add(-time.Duration(minutes) * time.Minute))
	})
	return res, nil
}

// syncOccurrence copies the template-owned mutable fields onto an existing occurrence.
func syncOccurrence(occ domain.Task) func(t *domain.Task) bool {
	return func(t *domain.Task) bool {
		changed := false
		if t.Priority != occ.Priority {
			t.Priority = occ.Priority
			changed = true
		}
		if !domain.SameInstant(t.DueAt, occ.DueAt) {
			due := *occ.DueAt
			t.DueAt = &due
			changed = true
		}
		if t.Responsible != occ.Responsible {
			t.Responsible = occ.Responsible
			changed = true
		}
		if t.Zone != occ.Zone {
			t.Zone = occ.Zone
			changed = true
		}
		if t.ZoneLabel != occ.ZoneLabel {
			t.ZoneLabel = occ.ZoneLabel
			changed = true
		}
		return changed
	}
}
