package alerting

import (
	"strings"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// Critical key categories
const (
	CategoryCleaning = "cleaning"
	CategorySLA      = "sla"
)

const (
	DefaultCleaningMarker  = "❌"
	DefaultSLABreachMarker = "⚠"
)

// Markers leading glyphs signalling a critical condition in row text.
type Markers struct {
	Cleaning  string
	SLABreach string
}

func DefaultMarkers() Markers {
	return Markers{Cleaning: DefaultCleaningMarker, SLABreach: DefaultSLABreachMarker}
}

func (m Markers) withDefaults() Markers {
	if m.Cleaning == "" {
		m.Cleaning = DefaultCleaningMarker
	}
	if m.SLABreach == "" {
		m.SLABreach = DefaultSLABreachMarker
	}
	return m
}

// CriticalSet set of "<category>|<entityKey>" strings.
type CriticalSet map[string]struct{}

func (s CriticalSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s CriticalSet) Len() int { return len(s) }

// CriticalKey builds the stable "<category>|<entityKey>" form.
func CriticalKey(category, entityKey string) string {
	return category + "|" + entityKey
}

// ParseCriticalKey splits on the first "|".
func ParseCriticalKey(key string) (category, entityKey string, ok bool) {
	return strings.Cut(key, "|")
}

// rowKeys critical keys for one row, cleaning before sla.
func rowKeys(row domain.Row, m Markers) []string {
	var keys []string
	entity := row.EntityKey()
	if strings.HasPrefix(strings.TrimSpace(row.TerminalStatusText), m.Cleaning) {
		keys = append(keys, CriticalKey(CategoryCleaning, entity))
	}
	if strings.HasPrefix(strings.TrimSpace(row.SLAText), m.SLABreach) {
		keys = append(keys, CriticalKey(CategorySLA, entity))
	}
	return keys
}

// BuildCriticalSet derives the current critical keys from rows.
func BuildCriticalSet(rows []domain.Row, markers Markers) CriticalSet {
	m := markers.withDefaults()
	set := make(CriticalSet)
	for _, row := range rows {
		for _, k := range rowKeys(row, m) {
			set[k] = struct{}{}
		}
	}
	return set
}

// DetectNewCritical returns the current set and the keys absent from prev, in row order.
// A key that disappears and comes back is reported again.
func DetectNewCritical(prev CriticalSet, rows []domain.Row, markers Markers) (CriticalSet, []string) {
	m := markers.withDefaults()
	next := make(CriticalSet)
	var newOnes []string
	for _, row := range rows {
		for _, k := range rowKeys(row, m) {
			if next.Has(k) {
				continue
			}
			next[k] = struct{}{}
			if !prev.Has(k) {
				newOnes = append(newOnes, k)
			}
		}
	}
	return next, newOnes
}
