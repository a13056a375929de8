package domain

import (
	"strconv"
	"strings"
)

// Row 表格导出中的一行（已校验）
type Row struct {
	BedLabel           string `json:"bed_label"`
	TerminalStatusText string `json:"terminal_status_text,omitempty"`
	SLAText            string `json:"sla_text,omitempty"`
	OccupancyText      string `json:"occupancy_text,omitempty"`
	LastCheckedText    string `json:"last_checked_text,omitempty"`
	Order              int    `json:"order"`
}

// EntityKey trimmed bed label, or "row-<order>" when the label is blank.
func (r Row) EntityKey() string {
	if label := strings.TrimSpace(r.BedLabel); label != "" {
		return label
	}
	return "row-" + strconv.Itoa(r.Order)
}
