package notify

import (
	"context"
	"errors"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
)

// AlertEntry one parsed critical key
type AlertEntry struct {
	Category string `json:"category"`
	Entity   string `json:"entity"`
}

// Alert 一批新出现的 critical key
type Alert struct {
	Keys     []string     `json:"keys"`
	Entries  []AlertEntry `json:"entries"`
	Sound    bool         `json:"sound"`
	RaisedAt time.Time    `json:"raised_at"`
}

// NewAlert parses keys into entries; keys without a separator are kept with an empty category.
func NewAlert(keys []string, sound bool, now time.Time) Alert {
	entries := make([]AlertEntry, 0, len(keys))
	for _, k := range keys {
		cat, entity, ok := alerting.ParseCriticalKey(k)
		if !ok {
			cat, entity = "", k
		}
		entries = append(entries, AlertEntry{Category: cat, Entity: entity})
	}
	return Alert{
		Keys:     append([]string(nil), keys...),
		Entries:  entries,
		Sound:    sound,
		RaisedAt: now,
	}
}

// Publisher 告警输出
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// Multi fans out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, alert Alert) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
