// Package db persists run history and generated records in Postgres.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stock-parody/manager-go/internal/parody"
	"stock-parody/manager-go/internal/utils"
)

// Run statuses, in the order a healthy run passes through them.
const (
	StatusCollecting = "collecting"
	StatusCollected  = "collected"
	StatusCards      = "cards"
	StatusVideo      = "video"
	StatusUploaded   = "uploaded"
	StatusFailed     = "failed"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	pool *pgxpool.Pool
}

type Run struct {
	ID        string
	RunDate   string
	Hostname  string
	Status    string
	Accepted  int
	Defaulted int
	Skipped   int
	Meta      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) CreateRun(ctx context.Context, run Run) error {
	utils.Debug("db create run", "id", run.ID, "date", run.RunDate)
	meta := run.Meta
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO parody_runs (id, run_date, hostname, status, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
			updated_at = NOW()
	`, run.ID, run.RunDate, run.Hostname, run.Status, meta)
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	utils.Debug("db get run", "id", id)
	row := s.pool.QueryRow(ctx, `
		SELECT id, run_date, hostname, status, accepted, defaulted, skipped, meta, created_at, updated_at
		FROM parody_runs
		WHERE id = $1
	`, id)
	return scanRun(row)
}

// LatestRun returns the most recently created run, optionally limited to one status.
func (s *Store) LatestRun(ctx context.Context, status string) (Run, error) {
	utils.Debug("db latest run", "status", status)
	row := s.pool.QueryRow(ctx, `
		SELECT id, run_date, hostname, status, accepted, defaulted, skipped, meta, created_at, updated_at
		FROM parody_runs
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, status)
	return scanRun(row)
}

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	err := row.Scan(
		&r.ID,
		&r.RunDate,
		&r.Hostname,
		&r.Status,
		&r.Accepted,
		&r.Defaulted,
		&r.Skipped,
		&r.Meta,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

func (s *Store) UpdateRunStatus(ctx context.Context, id, status string) error {
	utils.Debug("db update run status", "id", id, "status", status)
	_, err := s.pool.Exec(ctx, `
		UPDATE parody_runs
		SET status = $1,
			updated_at = NOW()
		WHERE id = $2
	`, status, id)
	return err
}

func (s *Store) UpdateRunCounts(ctx context.Context, id string, accepted, defaulted, skipped int) error {
	utils.Debug("db update run counts", "id", id, "accepted", accepted, "defaulted", defaulted, "skipped", skipped)
	_, err := s.pool.Exec(ctx, `
		UPDATE parody_runs
		SET accepted = $1,
			defaulted = $2,
			skipped = $3,
			updated_at = NOW()
		WHERE id = $4
	`, accepted, defaulted, skipped, id)
	return err
}

// MergeRunMeta shallow-merges meta into the run's jsonb meta column.
func (s *Store) MergeRunMeta(ctx context.Context, id string, meta map[string]any) error {
	utils.Debug("db merge run meta", "id", id, "keys", len(meta))
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE parody_runs
		SET meta = meta || $1::jsonb,
			updated_at = NOW()
		WHERE id = $2
	`, metaJSON, id)
	return err
}

// ReplaceRecords swaps the run's stored records for the given list in one transaction,
// so writing the same run twice leaves one copy.
func (s *Store) ReplaceRecords(ctx context.Context, runID string, records []parody.Record) error {
	utils.Debug("db replace records", "run", runID, "count", len(records))
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM parody_records WHERE run_id = $1`, runID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, r := range records {
		batch.Queue(`
			INSERT INTO parody_records (
				run_id, position, date, original_title, parody_title, setup, punchline,
				humor_lesson, disclaimer, source_url, placeholder, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		`, runID, i, r.Date, r.OriginalTitle, r.ParodyTitle, r.Setup, r.Punchline,
			r.HumorLesson, r.Disclaimer, r.SourceURL, r.IsPlaceholder())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListRecords(ctx context.Context, runID string) ([]parody.Record, error) {
	utils.Debug("db list records", "run", runID)
	rows, err := s.pool.Query(ctx, `
		SELECT date, original_title, parody_title, setup, punchline, humor_lesson, disclaimer, source_url
		FROM parody_records
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []parody.Record
	for rows.Next() {
		var r parody.Record
		if err := rows.Scan(
			&r.Date,
			&r.OriginalTitle,
			&r.ParodyTitle,
			&r.Setup,
			&r.Punchline,
			&r.HumorLesson,
			&r.Disclaimer,
			&r.SourceURL,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
