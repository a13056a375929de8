package domain

const (
	DefaultLookaheadDays      = 1
	DefaultGracePeriodMinutes = 15
	DefaultRetentionMinutes   = 24 * 60
)

// RecurringTemplate 重复任务模板：固定每日时间（StartTimes）或 起始时间+频率（StartAt+FrequencyMinutes）
type RecurringTemplate struct {
	SeriesID        string     `json:"series_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Zone            string     `json:"zone,omitempty"`
	ZoneLabel       string     `json:"zone_label,omitempty"`
	Responsible     string     `json:"responsible,omitempty"`
	Priority        int        `json:"priority,omitempty"`
	Recurrence      Recurrence `json:"recurrence,omitempty"`
	RecurrenceLabel string     `json:"recurrence_label,omitempty"`

	// "HH:MM" in the reference date's location
	StartTimes []string `json:"start_times,omitempty"`

	StartAt          string `json:"start_at,omitempty"`
	FrequencyMinutes int    `json:"frequency_minutes,omitempty"`
	FrequencyLabel   string `json:"frequency_label,omitempty"`

	LookaheadDays      *int `json:"lookahead_days,omitempty"`
	GracePeriodMinutes *int `json:"grace_period_minutes,omitempty"`
	RetentionMinutes   *int `json:"retention_minutes,omitempty"`
}

func (t *RecurringTemplate) Lookahead() int {
	return nonNegativeOr(t.LookaheadDays, DefaultLookaheadDays)
}

func (t *RecurringTemplate) GracePeriod() int {
	return nonNegativeOr(t.GracePeriodMinutes, DefaultGracePeriodMinutes)
}

func (t *RecurringTemplate) Retention() int {
	return nonNegativeOr(t.RetentionMinutes, DefaultRetentionMinutes)
}

func nonNegativeOr(v *int, def int) int {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}
