package alerting

import (
	"sync"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// Tracker 持有上一轮的 critical key 集合；每个 dashboard 实例一个
type Tracker struct {
	mu      sync.Mutex
	markers Markers
	prev    CriticalSet
}

func NewTracker(markers Markers) *Tracker {
	return &Tracker{markers: markers.withDefaults(), prev: make(CriticalSet)}
}

// Observe diffs rows against the previous snapshot and keeps the result as the new baseline.
func (t *Tracker) Observe(rows []domain.Row) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, newOnes := DetectNewCritical(t.prev, rows, t.markers)
	t.prev = next
	return newOnes
}

// Snapshot copy of the current baseline.
func (t *Tracker) Snapshot() CriticalSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(CriticalSet, len(t.prev))
	for k := range t.prev {
		out[k] = struct{}{}
	}
	return out
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prev = make(CriticalSet)
}
