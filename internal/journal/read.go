package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/worldtext/internal/extract"
)

// Keys returns the key table of a run in raw-table order.
// Returns an empty slice (not nil) if the run has no keys.
func (j *Journal) Keys(ctx context.Context, runID string) ([]extract.Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, key, text, category, first
		FROM keys
		WHERE run_id = ?
		ORDER BY pos ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	entries := []extract.Entry{}
	for rows.Next() {
		var e extract.Entry
		var cat string
		if err := rows.Scan(&e.Seq, &e.Key, &e.Text, &cat, &e.First); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		e.Category = extract.Category(cat)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return entries, nil
}

// Checkpoints returns the checkpoints of a run in order.
func (j *Journal) Checkpoints(ctx context.Context, runID string) ([]Checkpoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, records, keys, created_at
		FROM checkpoints
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	out := []Checkpoint{}
	for rows.Next() {
		var cp Checkpoint
		var created sql.NullString
		if err := rows.Scan(&cp.Seq, &cp.Records, &cp.Keys, &created); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		if cp.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse checkpoint time: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// Run returns one run by id.
func (j *Journal) Run(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, world, started_at, finished_at, status FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNoRun)
	}
	return r, err
}

// LatestRun returns the most recently started run.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, world, started_at, finished_at, status FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRun
	}
	return r, err
}

// Runs lists all runs, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, world, started_at, finished_at, status FROM runs
		ORDER BY started_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished sql.NullString
	if err := s.Scan(&r.ID, &r.World, &started, &finished, &r.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return r, nil
}
