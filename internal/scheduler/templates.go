package scheduler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// LoadTemplatesFile reads a JSON array of recurring templates. An empty path yields none.
func LoadTemplatesFile(path string) ([]domain.RecurringTemplate, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	var templates []domain.RecurringTemplate
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, fmt.Errorf("parse templates file %s: %w", path, err)
	}
	out := templates[:0]
	for _, tpl := range templates {
		if tpl.SeriesID == "" {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}
