package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// PostgresTaskRepository tasks 表（metadata / history 为 JSONB）
type PostgresTaskRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db, now: time.Now}
}

var _ TaskRepository = (*PostgresTaskRepository)(nil)

const taskColumns = `
		id,
		COALESCE(series_id, ''),
		source,
		title,
		COALESCE(description, ''),
		COALESCE(zone, ''),
		COALESCE(zone_label, ''),
		COALESCE(responsible, ''),
		priority,
		status,
		due_at,
		COALESCE(recurrence, 'none'),
		COALESCE(recurrence_label, ''),
		COALESCE(metadata::text, '{}'),
		COALESCE(history::text, '[]'),
		created_at,
		updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (domain.Task, error) {
	var (
		t                       domain.Task
		source, status, recur   string
		priority                int
		due                     sql.NullTime
		metadataRaw, historyRaw string
	)
	if err := s.Scan(
		&t.ID,
		&t.SeriesID,
		&source,
		&t.Title,
		&t.Description,
		&t.Zone,
		&t.ZoneLabel,
		&t.Responsible,
		&priority,
		&status,
		&due,
		&recur,
		&t.RecurrenceLabel,
		&metadataRaw,
		&historyRaw,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return domain.Task{}, err
	}
	t.Source = domain.TaskSource(source)
	if t.Source == "" {
		t.Source = domain.TaskSourceRemote
	}
	t.Priority = domain.NormalizePriority(priority)
	t.Status = domain.ParseStatus(status)
	t.Recurrence = domain.ParseRecurrence(recur)
	if due.Valid {
		d := due.Time
		t.DueAt = &d
	}
	if metadataRaw != "" && metadataRaw != "{}" {
		if err := json.Unmarshal([]byte(metadataRaw), &t.Metadata); err != nil {
			return domain.Task{}, fmt.Errorf("decode metadata of task %s: %w", t.ID, err)
		}
	}
	if historyRaw != "" && historyRaw != "[]" {
		if err := json.Unmarshal([]byte(historyRaw), &t.History); err != nil {
			return domain.Task{}, fmt.Errorf("decode history of task %s: %w", t.ID, err)
		}
	}
	return t, nil
}

// LoadTasks 按创建时间返回全部任务
func (r *PostgresTaskRepository) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return out, nil
}

// SaveTask inserts, or upserts when fields.ID names an existing task (history is appended).
func (r *PostgresTaskRepository) SaveTask(ctx context.Context, fields domain.TaskFields, actx domain.ActionContext) (string, error) {
	task := newTaskFromFields(fields, actx, r.now())
	metadata, err := marshalJSON(task.Metadata, "{}")
	if err != nil {
		return "", err
	}
	history, err := marshalJSON(task.History, "[]")
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO tasks (
			id, series_id, source, title, description, zone, zone_label, responsible,
			priority, status, due_at, recurrence, recurrence_label, metadata, history,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14::jsonb, $15::jsonb,
			$16, $17
		)
		ON CONFLICT (id) DO UPDATE SET
			series_id = EXCLUDED.series_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			zone = EXCLUDED.zone,
			zone_label = EXCLUDED.zone_label,
			responsible = EXCLUDED.responsible,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			due_at = EXCLUDED.due_at,
			recurrence = EXCLUDED.recurrence,
			recurrence_label = EXCLUDED.recurrence_label,
			metadata = EXCLUDED.metadata,
			history = COALESCE(tasks.history, '[]'::jsonb) || EXCLUDED.history,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		task.ID,
		nullString(task.SeriesID),
		string(task.Source),
		task.Title,
		task.Description,
		task.Zone,
		task.ZoneLabel,
		task.Responsible,
		int(task.Priority),
		string(task.Status),
		nullTime(task.DueAt),
		string(task.Recurrence),
		task.RecurrenceLabel,
		metadata,
		history,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save task: %w", err)
	}
	return task.ID, nil
}

func (r *PostgresTaskRepository) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to get task: %w", err)
	}
	if !patch.Apply(&task) {
		return tx.Commit()
	}

	now := r.now()
	task.UpdatedAt = now
	task.History = append(task.History, historyEntry(domain.HistoryUpdated, task.Status, domain.ActionContext{}, now))
	history, err := marshalJSON(task.History, "[]")
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET
			title = $2,
			description = $3,
			zone = $4,
			zone_label = $5,
			responsible = $6,
			priority = $7,
			status = $8,
			due_at = $9,
			history = $10::jsonb,
			updated_at = $11
		WHERE id = $1
	`,
		id,
		task.Title,
		task.Description,
		task.Zone,
		task.ZoneLabel,
		task.Responsible,
		int(task.Priority),
		string(task.Status),
		nullTime(task.DueAt),
		history,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return tx.Commit()
}

func (r *PostgresTaskRepository) CompleteTask(ctx context.Context, id string, actx domain.ActionContext) (bool, error) {
	now := r.now()
	entry, err := marshalJSON([]domain.HistoryEntry{historyEntry(domain.HistoryCompleted, domain.TaskStatusCompleted, actx, now)}, "[]")
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET
			status = 'completed',
			updated_at = $2,
			history = COALESCE(history, '[]'::jsonb) || $3::jsonb
		WHERE id = $1 AND status <> 'completed'
	`, id, now, entry)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	return n > 0, nil
}

func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
