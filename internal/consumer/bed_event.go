package consumer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// Bed event kinds
const (
	KindOccupancy = "occupancy"
	KindStatus    = "status"
)

// BedEvent 床位事件（Redis Stream data 字段或 MQTT payload）
type BedEvent struct {
	Kind        string `json:"kind"`
	BedID       string `json:"bed_id"`
	Status      string `json:"status"`
	Text        string `json:"text,omitempty"`
	Description string `json:"description,omitempty"`
	Actor       string `json:"actor,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// BedEventSink receives decoded events; bedstate.Builder implements it.
type BedEventSink interface {
	ApplyOccupancy(ev domain.OccupancyEvent) bool
	ApplyStatus(ev domain.StatusEvent) bool
}

func decodeBedEvent(data []byte) (BedEvent, error) {
	var ev BedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("invalid bed event payload: %w", err)
	}
	return ev, validate(ev)
}

func validate(ev BedEvent) error {
	if ev.BedID == "" {
		return fmt.Errorf("invalid bed event: missing bed_id")
	}
	switch strings.ToLower(ev.Kind) {
	case KindOccupancy, KindStatus:
		return nil
	default:
		return fmt.Errorf("invalid bed event: unknown kind %q", ev.Kind)
	}
}

// apply pushes ev into sink. A missing or unparseable timestamp means now.
func apply(sink BedEventSink, ev BedEvent, now time.Time) bool {
	ts := now
	if parsed := domain.ParseTimestamp(ev.Timestamp); parsed != nil {
		ts = *parsed
	}
	if strings.ToLower(ev.Kind) == KindOccupancy {
		return sink.ApplyOccupancy(domain.OccupancyEvent{
			BedID:     ev.BedID,
			Status:    domain.ParseOccupancy(strings.ToLower(ev.Status)),
			Timestamp: ts,
			Actor:     ev.Actor,
		})
	}
	checked := ts
	return sink.ApplyStatus(domain.StatusEvent{
		BedID:       ev.BedID,
		Status:      domain.ParseBedStatus(strings.ToLower(ev.Status)),
		Text:        ev.Text,
		Description: ev.Description,
		Timestamp:   ts,
		CheckedAt:   &checked,
		Actor:       ev.Actor,
	})
}
