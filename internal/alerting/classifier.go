package alerting

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// DefaultSLAThreshold boundary between due_soon and on_track.
const DefaultSLAThreshold = 60 * time.Minute

// Thresholds bed notification thresholds, in hours.
type Thresholds struct {
	CheckIntervalOccupiedHours  float64
	RecentlyFreedThresholdHours float64
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func bedName(bed domain.BedEntity) string {
	if bed.Label != "" {
		return bed.Label
	}
	return bed.BedID
}

// CalculateNotifications evaluates every rule independently and returns the hits sorted by priority.
func CalculateNotifications(bed domain.BedEntity, th Thresholds, now time.Time) []domain.NotificationRecord {
	var out []domain.NotificationRecord
	add := func(typ domain.NotificationType, prio int, msg string) {
		out = append(out, domain.NotificationRecord{
			Type:      typ,
			Priority:  prio,
			Message:   msg,
			Timestamp: now,
			SourceID:  bed.BedID,
		})
	}
	name := bedName(bed)

	switch bed.CurrentStatus {
	case domain.BedStatusMessy:
		add(domain.NotificationMessyBed, domain.NotificationPriorityMessyBed,
			fmt.Sprintf("Bed %s needs cleaning", name))
	case domain.BedStatusMissingEquipment:
		add(domain.NotificationMissingEquipment, domain.NotificationPriorityMissingEquipment,
			fmt.Sprintf("Bed %s is missing equipment", name))
	case domain.BedStatusOther:
		if desc := strings.TrimSpace(bed.ProblemDescription); desc != "" {
			add(domain.NotificationOtherProblem, domain.NotificationPriorityOtherProblem,
				fmt.Sprintf("Bed %s: %s", name, desc))
		}
	}

	if IsRecentlyFreed(bed, th, now) {
		add(domain.NotificationRecentlyFreed, domain.NotificationPriorityRecentlyFreed,
			fmt.Sprintf("Bed %s was freed recently, check before the next patient", name))
	}
	if NeedsCheck(bed, th, now) {
		add(domain.NotificationRegularCheck, domain.NotificationPriorityRegularCheck,
			fmt.Sprintf("Bed %s is due for a regular check", name))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// IsRecentlyFreed lastFreed is set and no older than the recently-freed threshold.
func IsRecentlyFreed(bed domain.BedEntity, th Thresholds, now time.Time) bool {
	return bed.LastFreedTime != nil && now.Sub(*bed.LastFreedTime) <= hours(th.RecentlyFreedThresholdHours)
}

// NeedsCheck occupied bed whose last check is at least the check interval old.
func NeedsCheck(bed domain.BedEntity, th Thresholds, now time.Time) bool {
	return bed.OccupancyStatus == domain.OccupancyOccupied &&
		bed.LastCheckedTime != nil &&
		now.Sub(*bed.LastCheckedTime) >= hours(th.CheckIntervalOccupiedHours)
}

// NotificationLevel high = priority 1-2, medium = 3, low = 4-5.
func NotificationLevel(priority int) string {
	switch {
	case priority <= 2:
		return "high"
	case priority == 3:
		return "medium"
	default:
		return "low"
	}
}

// SLA codes
const (
	SLACompleted = "completed"
	SLANoDue     = "no_due"
	SLABreach    = "breach"
	SLADueSoon   = "due_soon"
	SLAOnTrack   = "on_track"
)

var slaLabels = map[string]string{
	SLACompleted: "Completed",
	SLANoDue:     "No due date",
	SLABreach:    "Overdue",
	SLADueSoon:   "Due soon",
	SLAOnTrack:   "On track",
}

// SLAResult task urgency bucket
type SLAResult struct {
	Code            string `json:"code"`
	Label           string `json:"label"`
	MinutesUntilDue *int   `json:"minutes_until_due"`
}

// ClassifyTaskSla uses the default 60 minute due-soon threshold.
func ClassifyTaskSla(status domain.TaskStatus, dueAt *time.Time, now time.Time) SLAResult {
	return ClassifyTaskSlaWithin(status, dueAt, now, DefaultSLAThreshold)
}

func ClassifyTaskSlaWithin(status domain.TaskStatus, dueAt *time.Time, now time.Time, threshold time.Duration) SLAResult {
	if status == domain.TaskStatusCompleted {
		return slaResult(SLACompleted, nil)
	}
	if dueAt == nil {
		return slaResult(SLANoDue, nil)
	}
	d := dueAt.Sub(now)
	minutes := int(math.Round(d.Minutes()))
	if d < 0 {
		// 已超期的任务至少显示 -1
		minutes = int(math.Floor(d.Minutes()))
	}
	switch {
	case d < 0:
		return slaResult(SLABreach, &minutes)
	case d <= threshold:
		return slaResult(SLADueSoon, &minutes)
	default:
		return slaResult(SLAOnTrack, &minutes)
	}
}

func slaResult(code string, minutes *int) SLAResult {
	return SLAResult{Code: code, Label: slaLabels[code], MinutesUntilDue: minutes}
}
