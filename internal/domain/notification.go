package domain

import "time"

// NotificationType bed notification reason
type NotificationType string

const (
	NotificationMessyBed         NotificationType = "messy_bed"
	NotificationMissingEquipment NotificationType = "missing_equipment"
	NotificationOtherProblem     NotificationType = "other_problem"
	NotificationRecentlyFreed    NotificationType = "recently_freed"
	NotificationRegularCheck     NotificationType = "regular_check"
)

// Notification priorities, 1 = highest.
const (
	NotificationPriorityMessyBed         = 1
	NotificationPriorityMissingEquipment = 2
	NotificationPriorityOtherProblem     = 3
	NotificationPriorityRecentlyFreed    = 4
	NotificationPriorityRegularCheck     = 5
)

// NotificationRecord 每轮刷新重新计算，不持久化
type NotificationRecord struct {
	Type      NotificationType `json:"type"`
	Priority  int              `json:"priority"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	SourceID  string           `json:"source_id"`
}
