// Package journal provides a SQLite-backed log of extraction runs.
//
// A run journal records, per run:
//   - Runs: world path, start and finish time, final status
//   - Keys: every key-table row in raw-table order (seeded rows first, then
//     minted keys in mint order)
//   - Checkpoints: records processed and keys minted at each save point
//
// The key tables of a run can be rebuilt from its journal without touching
// the world, which is what `worldtext export` does.
//
// # Critical Patterns
//
// Append-only keys
//   - Rows are never updated or deleted; keys are never retracted
//   - UNIQUE(run_id, key) with ON CONFLICT DO NOTHING makes re-appends
//     idempotent
//
// Ordering
//   - keys.pos is the raw-table position; reads ORDER BY pos ASC
//   - keys.seq is the registry's mint order, 0 for default and empty-text rows
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Run ids are UUIDv7 (time-ordered); tests inject their own IDGenerator
// and Clock.
package journal
