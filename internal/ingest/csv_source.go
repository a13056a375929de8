package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// CSVSource 通过 HTTP 拉取表格的 CSV 导出
type CSVSource struct {
	url        string
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewCSVSource creates a CSV export reader for url.
func NewCSVSource(url string, timeout time.Duration, retries int, logger *zap.Logger) *CSVSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "text/csv")

	return &CSVSource{
		url:        url,
		httpClient: client,
		logger:     logger,
	}
}

func (s *CSVSource) FetchRows(ctx context.Context) ([]domain.Row, error) {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		Get(s.url)
	if err != nil {
		s.logger.Warn("CSV export fetch failed", zap.String("url", s.url), zap.Error(err))
		return nil, fmt.Errorf("fetch csv export: %w", err)
	}
	if resp.IsError() {
		s.logger.Warn("CSV export returned error status",
			zap.String("url", s.url),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("fetch csv export: unexpected status %d", resp.StatusCode())
	}

	rows, err := ParseCSV(resp.Body())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("CSV export parsed", zap.Int("row_count", len(rows)))
	return rows, nil
}

// ParseCSV reads a CSV document (ragged rows allowed) and validates it with ParseRows.
func ParseCSV(data []byte) ([]domain.Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv export: %w", err)
	}
	return ParseRows(records)
}
