package domain

import "time"

// Priority lower value = more urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPlanned    TaskStatus = "planned"
	TaskStatusInProgress TaskStatus = "inProgress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// Recurrence 重复类型
type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrencePerShift Recurrence = "perShift"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceCustom   Recurrence = "custom"
)

// TaskSource where a task record came from
type TaskSource string

const (
	TaskSourceLocal     TaskSource = "local"
	TaskSourceScheduler TaskSource = "scheduler"
	TaskSourceRemote    TaskSource = "remote"
)

// Metadata keys understood by the scheduler and the display merge.
const (
	MetaRecurringFrequencyMinutes = "recurringFrequencyMinutes"
	MetaRecurringFrequencyLabel   = "recurringFrequencyLabel"
	MetaPatientReference          = "patient.reference"
	MetaRecurringOccurrencesCount = "recurringOccurrencesCount"
	MetaRecurringSourceTaskIDs    = "recurringSourceTaskIds"
)

// History event types
const (
	HistoryCreated       = "created"
	HistoryStatusChanged = "statusChanged"
	HistoryUpdated       = "updated"
	HistoryRescheduled   = "rescheduled"
	HistoryCompleted     = "completed"
)

// HistoryEntry one change event on a task
type HistoryEntry struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      TaskStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Actor       string     `json:"actor,omitempty"`
}

// Task 运营任务（一次性任务或重复任务的一次具体发生）
type Task struct {
	ID              string         `json:"id"`
	SeriesID        string         `json:"series_id,omitempty"`
	Source          TaskSource     `json:"source"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Zone            string         `json:"zone,omitempty"`
	ZoneLabel       string         `json:"zone_label,omitempty"`
	Responsible     string         `json:"responsible,omitempty"`
	Priority        Priority       `json:"priority"`
	Status          TaskStatus     `json:"status"`
	DueAt           *time.Time     `json:"due_at,omitempty"`
	Recurrence      Recurrence     `json:"recurrence"`
	RecurrenceLabel string         `json:"recurrence_label,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	History         []HistoryEntry `json:"history,omitempty"`
}

// IsRecurringOccurrence reports whether the task belongs to a series.
func (t *Task) IsRecurringOccurrence() bool {
	return t.SeriesID != ""
}

// Clone returns a deep copy (metadata, history, due date).
func (t Task) Clone() Task {
	out := t
	if t.DueAt != nil {
		due := *t.DueAt
		out.DueAt = &due
	}
	if t.Metadata != nil {
		out.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	if t.History != nil {
		out.History = append([]HistoryEntry(nil), t.History...)
	}
	return out
}

// TaskFields 创建任务时调用方提供的原始字段（未规范化）
type TaskFields struct {
	ID              string         `json:"id,omitempty"`
	SeriesID        string         `json:"series_id,omitempty"`
	Source          string         `json:"source,omitempty"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Zone            string         `json:"zone,omitempty"`
	ZoneLabel       string         `json:"zone_label,omitempty"`
	Responsible     string         `json:"responsible,omitempty"`
	Priority        int            `json:"priority,omitempty"`
	Status          string         `json:"status,omitempty"`
	DueAt           string         `json:"due_at,omitempty"`
	Recurrence      string         `json:"recurrence,omitempty"`
	RecurrenceLabel string         `json:"recurrence_label,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// TaskPatch partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Zone        *string `json:"zone,omitempty"`
	ZoneLabel   *string `json:"zone_label,omitempty"`
	Responsible *string `json:"responsible,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	DueAt       *string `json:"due_at,omitempty"`
}

// ActionContext who performed a write and why
type ActionContext struct {
	Actor string `json:"actor,omitempty"`
	Note  string `json:"note,omitempty"`
}

// NewTask builds a normalized task from raw fields. id must already be resolved.
func NewTask(id string, f TaskFields, now time.Time) Task {
	source := TaskSource(f.Source)
	switch source {
	case TaskSourceLocal, TaskSourceScheduler, TaskSourceRemote:
	default:
		source = TaskSourceLocal
	}
	status := ParseStatus(f.Status)
	return Task{
		ID:              id,
		SeriesID:        f.SeriesID,
		Source:          source,
		Title:           f.Title,
		Description:     f.Description,
		Zone:            f.Zone,
		ZoneLabel:       f.ZoneLabel,
		Responsible:     f.Responsible,
		Priority:        NormalizePriority(f.Priority),
		Status:          status,
		DueAt:           ParseTimestamp(f.DueAt),
		Recurrence:      ParseRecurrence(f.Recurrence),
		RecurrenceLabel: f.RecurrenceLabel,
		Metadata:        f.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Apply applies a patch with the same normalization as NewTask and reports whether anything changed.
func (p TaskPatch) Apply(t *Task) bool {
	changed := false
	setString := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setString(&t.Title, p.Title)
	setString(&t.Description, p.Description)
	setString(&t.Zone, p.Zone)
	setString(&t.ZoneLabel, p.ZoneLabel)
	setString(&t.Responsible, p.Responsible)
	if p.Priority != nil {
		if pr := NormalizePriority(*p.Priority); pr != t.Priority {
			t.Priority = pr
			changed = true
		}
	}
	if p.Status != nil {
		if st := ParseStatus(*p.Status); st != t.Status {
			t.Status = st
			changed = true
		}
	}
	if p.DueAt != nil {
		due := ParseTimestamp(*p.DueAt)
		if !SameInstant(due, t.DueAt) {
			t.DueAt = due
			changed = true
		}
	}
	return changed
}
