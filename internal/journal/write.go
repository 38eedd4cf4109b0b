package journal

import (
	"context"
	"fmt"

	"github.com/roach88/worldtext/internal/extract"
)

// BeginRun records the start of a run over world and returns its id.
func (j *Journal) BeginRun(ctx context.Context, world string) (string, error) {
	id := j.ids.NewID()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, world, started_at, status)
		VALUES (?, ?, ?, ?)
	`, id, world, formatTime(j.clock.Now()), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// AppendKeys appends key-table rows to a run in one transaction. Rows keep
// the order given; a key already journaled for the run is ignored, so
// re-appending after a failed checkpoint is safe.
func (j *Journal) AppendKeys(ctx context.Context, runID string, entries []extract.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append keys: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var pos int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(pos), 0) FROM keys WHERE run_id = ?
	`, runID).Scan(&pos)
	if err != nil {
		return fmt.Errorf("append keys: next position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO keys (run_id, pos, seq, key, text, category, first)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, key) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append keys: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		res, err := stmt.ExecContext(ctx, runID, pos+1, e.Seq, e.Key, e.Text, string(e.Category), e.First)
		if err != nil {
			return fmt.Errorf("append keys: insert %q: %w", e.Key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			pos++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append keys: commit: %w", err)
	}
	return nil
}

// Checkpoint records progress: records processed and keys minted so far.
func (j *Journal) Checkpoint(ctx context.Context, runID string, records, keys int64) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, seq, records, keys, created_at)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM checkpoints WHERE run_id = ?
	`, runID, records, keys, formatTime(j.clock.Now()), runID)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// FinishRun sets the final status of a run.
func (j *Journal) FinishRun(ctx context.Context, runID, status string) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, status, formatTime(j.clock.Now()), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNoRun)
	}
	return nil
}
