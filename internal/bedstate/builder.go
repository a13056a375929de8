package bedstate

import (
	"sync"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

type bedRecord struct {
	bed domain.BedEntity

	occAt    time.Time
	occSet   bool
	statusAt time.Time
	statSet  bool
}

// Builder 根据占用/状态事件维护每个床位的派生状态
// Latest timestamp wins per bed; on equal timestamps the later applied event wins.
type Builder struct {
	mu    sync.RWMutex
	order []string
	beds  map[string]*bedRecord
}

func NewBuilder() *Builder {
	return &Builder{beds: make(map[string]*bedRecord)}
}

func (b *Builder) recordLocked(bedID string) *bedRecord {
	rec, ok := b.beds[bedID]
	if !ok {
		rec = &bedRecord{bed: domain.BedEntity{
			BedID:           bedID,
			CurrentStatus:   domain.BedStatusClean,
			OccupancyStatus: domain.OccupancyUnknown,
		}}
		b.beds[bedID] = rec
		b.order = append(b.order, bedID)
	}
	return rec
}

// ApplyOccupancy reports whether the event was applied (older events are ignored).
func (b *Builder) ApplyOccupancy(ev domain.OccupancyEvent) bool {
	if ev.BedID == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.recordLocked(ev.BedID)
	if rec.occSet && ev.Timestamp.Before(rec.occAt) {
		return false
	}
	prev := rec.bed.OccupancyStatus
	next := domain.ParseOccupancy(string(ev.Status))
	ts := ev.Timestamp

	switch {
	case prev == domain.OccupancyOccupied && (next == domain.OccupancyFree || next == domain.OccupancyCleaning):
		rec.bed.LastFreedTime = &ts
	case next == domain.OccupancyOccupied && prev != domain.OccupancyOccupied:
		rec.bed.LastOccupiedTime = &ts
	}
	rec.bed.OccupancyStatus = next
	rec.occAt = ts
	rec.occSet = true
	return true
}

func (b *Builder) ApplyStatus(ev domain.StatusEvent) bool {
	if ev.BedID == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.recordLocked(ev.BedID)
	if rec.statSet && ev.Timestamp.Before(rec.statusAt) {
		return false
	}
	rec.bed.CurrentStatus = domain.ParseBedStatus(string(ev.Status))
	rec.bed.StatusText = ev.Text
	rec.bed.ProblemDescription = ev.Description
	if ev.CheckedAt != nil {
		checked := *ev.CheckedAt
		rec.bed.LastCheckedTime = &checked
		rec.bed.LastCheckedBy = ev.Actor
	}
	rec.statusAt = ev.Timestamp
	rec.statSet = true
	return true
}

// ApplyRows treats each row as a snapshot observed at now.
func (b *Builder) ApplyRows(rows []domain.Row, now time.Time) {
	for _, row := range rows {
		occ, status := EventsFromRow(row, now)
		b.mu.Lock()
		rec := b.recordLocked(occ.BedID)
		if label := row.BedLabel; label != "" {
			rec.bed.Label = label
		}
		b.mu.Unlock()
		b.ApplyOccupancy(occ)
		b.ApplyStatus(status)
	}
}

// Beds copies in first-appearance order.
func (b *Builder) Beds() []domain.BedEntity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.BedEntity, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, copyBed(b.beds[id].bed))
	}
	return out
}

func (b *Builder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

func copyBed(bed domain.BedEntity) domain.BedEntity {
	cp := bed
	cp.LastCheckedTime = copyTime(bed.LastCheckedTime)
	cp.LastOccupiedTime = copyTime(bed.LastOccupiedTime)
	cp.LastFreedTime = copyTime(bed.LastFreedTime)
	if bed.Priority != nil {
		p := *bed.Priority
		cp.Priority = &p
	}
	return cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
