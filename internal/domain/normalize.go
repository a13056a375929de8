package domain

import (
	"strings"
	"time"
)

// NormalizePriority clamps into [PriorityCritical, PriorityLow]; 0 means "not set" and becomes medium.
func NormalizePriority(p int) Priority {
	switch {
	case p == 0:
		return PriorityMedium
	case p < int(PriorityCritical):
		return PriorityCritical
	case p > int(PriorityLow):
		return PriorityLow
	default:
		return Priority(p)
	}
}

// ParseStatus unknown values fall back to planned.
func ParseStatus(s string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "planned", "pending":
		return TaskStatusPlanned
	case "inprogress", "in_progress", "in-progress":
		return TaskStatusInProgress
	case "completed", "done":
		return TaskStatusCompleted
	case "cancelled", "canceled":
		return TaskStatusCancelled
	case "blocked":
		return TaskStatusBlocked
	default:
		return TaskStatusPlanned
	}
}

// ParseRecurrence unknown values fall back to none.
func ParseRecurrence(s string) Recurrence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pershift", "per_shift":
		return RecurrencePerShift
	case "daily":
		return RecurrenceDaily
	case "weekly":
		return RecurrenceWeekly
	case "custom":
		return RecurrenceCustom
	default:
		return RecurrenceNone
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp returns nil for empty or unparseable input.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// FormatISO matches the millisecond UTC form used in occurrence ids.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// SameInstant nil-safe time equality.
func SameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
