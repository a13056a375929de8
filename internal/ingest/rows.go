package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

var (
	ErrNoHeader         = errors.New("row source: header row is missing")
	ErrMissingBedColumn = errors.New("row source: bed label column not found")
)

// RowSource 表格数据来源（CSV 导出或 XLSX 文件）
type RowSource interface {
	FetchRows(ctx context.Context) ([]domain.Row, error)
}

type column int

const (
	colBedLabel column = iota
	colTerminalStatus
	colSLA
	colOccupancy
	colLastChecked
	colCount
)

// header aliases, compared after normalizeHeader
var headerAliases = map[column][]string{
	colBedLabel:       {"bed", "bed label", "bed id", "lova", "lovos nr", "lovos nr.", "lovos numeris", "lovos"},
	colTerminalStatus: {"status", "terminal status", "bed status", "būsena", "busena", "galutinė būsena", "galutine busena"},
	colSLA:            {"sla", "sla status", "sla būsena", "sla busena"},
	colOccupancy:      {"occupancy", "occupancy status", "užimtumas", "uzimtumas", "užimta", "uzimta"},
	colLastChecked:    {"last checked", "last checked at", "checked at", "paskutinis patikrinimas", "tikrinta"},
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// ParseRows validates a header+data record grid into typed rows. Only the bed label column is
// required; blank lines are skipped and Order is the data-row index.
func ParseRows(records [][]string) ([]domain.Row, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	index := [colCount]int{}
	for i := range index {
		index[i] = -1
	}
	for i, h := range records[0] {
		name := normalizeHeader(h)
		for col, aliases := range headerAliases {
			if index[col] >= 0 {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					index[col] = i
					break
				}
			}
		}
	}
	if index[colBedLabel] < 0 {
		return nil, fmt.Errorf("%w (header: %s)", ErrMissingBedColumn, strings.Join(records[0], ", "))
	}

	cell := func(rec []string, col column) string {
		i := index[col]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, domain.Row{
			BedLabel:           cell(rec, colBedLabel),
			TerminalStatusText: cell(rec, colTerminalStatus),
			SLAText:            cell(rec, colSLA),
			OccupancyText:      cell(rec, colOccupancy),
			LastCheckedText:    cell(rec, colLastChecked),
			Order:              n,
		})
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
