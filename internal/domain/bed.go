package domain

import "time"

// BedStatus 床位清洁状态
type BedStatus string

const (
	BedStatusClean            BedStatus = "clean"
	BedStatusMessy            BedStatus = "messy"
	BedStatusMissingEquipment BedStatus = "missing_equipment"
	BedStatusOther            BedStatus = "other"
)

// OccupancyStatus 床位占用状态
type OccupancyStatus string

const (
	OccupancyFree     OccupancyStatus = "free"
	OccupancyOccupied OccupancyStatus = "occupied"
	OccupancyCleaning OccupancyStatus = "cleaning"
	OccupancyReserved OccupancyStatus = "reserved"
	OccupancyUnknown  OccupancyStatus = "unknown"
)

// ParseBedStatus maps stored status codes; empty means clean, anything else unrecognized is "other".
func ParseBedStatus(s string) BedStatus {
	switch BedStatus(s) {
	case "", BedStatusClean:
		return BedStatusClean
	case BedStatusMessy, BedStatusMissingEquipment, BedStatusOther:
		return BedStatus(s)
	default:
		return BedStatusOther
	}
}

// ParseOccupancy maps stored occupancy codes, unknown otherwise.
func ParseOccupancy(s string) OccupancyStatus {
	switch OccupancyStatus(s) {
	case OccupancyFree, OccupancyOccupied, OccupancyCleaning, OccupancyReserved:
		return OccupancyStatus(s)
	default:
		return OccupancyUnknown
	}
}

// BedEntity 单个床位的派生状态
type BedEntity struct {
	BedID              string          `json:"bed_id"`
	Label              string          `json:"label,omitempty"`
	CurrentStatus      BedStatus       `json:"current_status"`
	StatusText         string          `json:"status_text,omitempty"`
	OccupancyStatus    OccupancyStatus `json:"occupancy_status"`
	LastCheckedTime    *time.Time      `json:"last_checked_time,omitempty"`
	LastCheckedBy      string          `json:"last_checked_by,omitempty"`
	LastOccupiedTime   *time.Time      `json:"last_occupied_time,omitempty"`
	LastFreedTime      *time.Time      `json:"last_freed_time,omitempty"`
	ProblemDescription string          `json:"problem_description,omitempty"`
	Priority           *int            `json:"priority,omitempty"`
}

// OccupancyEvent occupancy change reported for one bed
type OccupancyEvent struct {
	BedID     string          `json:"bed_id"`
	Status    OccupancyStatus `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor,omitempty"`
}

// StatusEvent cleanliness report for one bed. CheckedAt nil means the report is not a check.
type StatusEvent struct {
	BedID       string     `json:"bed_id"`
	Status      BedStatus  `json:"status"`
	Text        string     `json:"text,omitempty"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	CheckedAt   *time.Time `json:"checked_at,omitempty"`
	Actor       string     `json:"actor,omitempty"`
}
