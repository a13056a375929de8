package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// XLSXSource reads rows from a workbook on disk; an empty sheet name means the first sheet.
type XLSXSource struct {
	path   string
	sheet  string
	logger *zap.Logger
}

func NewXLSXSource(path, sheet string, logger *zap.Logger) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet, logger: logger}
}

func (s *XLSXSource) FetchRows(ctx context.Context) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, s.sheet, s.logger)
}

func readWorkbook(f *excelize.File, sheet string, logger *zap.Logger) ([]domain.Row, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	rows, err := ParseRows(records)
	if err != nil {
		return nil, err
	}
	logger.Debug("Workbook parsed", zap.String("sheet", sheet), zap.Int("row_count", len(rows)))
	return rows, nil
}
