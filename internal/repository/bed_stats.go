package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

var ErrSchemaIncompatible = errors.New("bed statistics: no compatible schema")

// PostgreSQL SQLSTATE codes treated as schema drift
const (
	pqUndefinedColumn = "42703"
	pqUndefinedTable  = "42P01"
)

// IsSchemaMismatch reports whether err is a missing column/table error from PostgreSQL.
func IsSchemaMismatch(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUndefinedColumn || pqErr.Code == pqUndefinedTable
}

// QueryDescriptor one schema tier. Every tier selects the same nine columns.
type QueryDescriptor struct {
	Name  string
	Query string
}

// DefaultBedStatsTiers full → reduced → legacy
var DefaultBedStatsTiers = []QueryDescriptor{
	{
		Name: "full",
		Query: `
		SELECT
			bed_id,
			COALESCE(label, bed_id),
			COALESCE(status, ''),
			COALESCE(occupancy_status, ''),
			priority,
			last_checked_at,
			last_occupied_at,
			last_freed_at,
			COALESCE(problem_description, '')
		FROM bed_status_overview
		ORDER BY bed_id
	`,
	},
	{
		Name: "reduced",
		Query: `
		SELECT
			bed_id,
			COALESCE(label, bed_id),
			COALESCE(status, ''),
			COALESCE(occupancy_status, ''),
			NULL::int,
			last_checked_at,
			NULL::timestamptz,
			last_freed_at,
			''
		FROM bed_status_overview
		ORDER BY bed_id
	`,
	},
	{
		Name: "legacy",
		Query: `
		SELECT
			bed_id,
			bed_id,
			COALESCE(status, ''),
			COALESCE(occupancy, ''),
			NULL::int,
			checked_at,
			NULL::timestamptz,
			NULL::timestamptz,
			''
		FROM bed_status
		ORDER BY bed_id
	`,
	},
}

// BedStatsRepository 远程床位聚合查询，按 schema 层级依次尝试
type BedStatsRepository struct {
	db     *sql.DB
	tiers  []QueryDescriptor
	logger *zap.Logger
}

func NewBedStatsRepository(db *sql.DB, tiers []QueryDescriptor, logger *zap.Logger) *BedStatsRepository {
	if len(tiers) == 0 {
		tiers = DefaultBedStatsTiers
	}
	return &BedStatsRepository{db: db, tiers: tiers, logger: logger}
}

// FetchBeds tries each tier in order and returns the first that succeeds with its name.
// A tier is abandoned only on schema mismatch; other errors are returned immediately.
func (r *BedStatsRepository) FetchBeds(ctx context.Context) ([]domain.BedEntity, string, error) {
	var lastErr error
	for _, tier := range r.tiers {
		beds, err := r.query(ctx, tier)
		if err == nil {
			return beds, tier.Name, nil
		}
		if !IsSchemaMismatch(err) {
			return nil, tier.Name, fmt.Errorf("bed statistics query (%s): %w", tier.Name, err)
		}
		r.logger.Warn("Bed statistics schema mismatch, trying next tier",
			zap.String("tier", tier.Name),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, "", fmt.Errorf("%w: %v", ErrSchemaIncompatible, lastErr)
}

func (r *BedStatsRepository) query(ctx context.Context, tier QueryDescriptor) ([]domain.BedEntity, error) {
	rows, err := r.db.QueryContext(ctx, tier.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beds []domain.BedEntity
	for rows.Next() {
		var (
			bed                     domain.BedEntity
			status, occupancy       string
			priority                sql.NullInt64
			checked, occupied, free sql.NullTime
		)
		if err := rows.Scan(
			&bed.BedID,
			&bed.Label,
			&status,
			&occupancy,
			&priority,
			&checked,
			&occupied,
			&free,
			&bed.ProblemDescription,
		); err != nil {
			return nil, err
		}
		bed.CurrentStatus = domain.ParseBedStatus(status)
		bed.OccupancyStatus = domain.ParseOccupancy(occupancy)
		if priority.Valid {
			p := int(priority.Int64)
			bed.Priority = &p
		}
		bed.LastCheckedTime = nullTimePtr(checked)
		bed.LastOccupiedTime = nullTimePtr(occupied)
		bed.LastFreedTime = nullTimePtr(free)
		beds = append(beds, bed)
	}
	return beds, rows.Err()
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
