package reporting

import (
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// Snapshot sources
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Totals 每张床只计入一个状态桶，且独立计入 occupied / free
type Totals struct {
	Total            int `json:"total"`
	Clean            int `json:"clean"`
	Messy            int `json:"messy"`
	MissingEquipment int `json:"missing_equipment"`
	OtherProblem     int `json:"other_problem"`
	Occupied         int `json:"occupied"`
	Free             int `json:"free"`
	NeedingCheck     int `json:"needing_check"`
	RecentlyFreed    int `json:"recently_freed"`
}

// NotificationCounts high = priority 1-2, medium = 3, low = 4-5
type NotificationCounts struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Snapshot KPI 快照
type Snapshot struct {
	Source        string             `json:"source"`
	Tier          string             `json:"tier,omitempty"`
	Totals        Totals             `json:"totals"`
	Notifications NotificationCounts `json:"notifications"`
	Error         string             `json:"error,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// ComputeTotals buckets beds using the same threshold rules as the bed notifications.
func ComputeTotals(beds []domain.BedEntity, th alerting.Thresholds, now time.Time) Totals {
	var t Totals
	for _, bed := range beds {
		t.Total++
		switch domain.ParseBedStatus(string(bed.CurrentStatus)) {
		case domain.BedStatusClean:
			t.Clean++
		case domain.BedStatusMessy:
			t.Messy++
		case domain.BedStatusMissingEquipment:
			t.MissingEquipment++
		default:
			t.OtherProblem++
		}
		if bed.OccupancyStatus == domain.OccupancyOccupied {
			t.Occupied++
		} else {
			t.Free++
		}
		if alerting.NeedsCheck(bed, th, now) {
			t.NeedingCheck++
		}
		if alerting.IsRecentlyFreed(bed, th, now) {
			t.RecentlyFreed++
		}
	}
	return t
}

// CountNotifications evaluates every bed's notifications and counts them by level.
func CountNotifications(beds []domain.BedEntity, th alerting.Thresholds, now time.Time) NotificationCounts {
	var c NotificationCounts
	for _, bed := range beds {
		for _, n := range alerting.CalculateNotifications(bed, th, now) {
			c.Total++
			switch alerting.NotificationLevel(n.Priority) {
			case "high":
				c.High++
			case "medium":
				c.Medium++
			default:
				c.Low++
			}
		}
	}
	return c
}
