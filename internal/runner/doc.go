// Package runner coordinates one extraction run over a world save.
//
// A Runner owns no extraction logic itself. It opens the save, feeds every
// record to an extract.Context in traversal order, writes back what changed,
// checkpoints, processes the save-level files and data packs, and finally
// exports the key tables.
//
// ARCHITECTURE:
//
// Checkpoints:
// Every save_threshold records the record store is flushed and, when a
// journal is attached, the keys minted since the previous checkpoint are
// appended to it together with a checkpoint row. A crash therefore loses at
// most one threshold of work, and the journal never holds keys whose
// records were not saved.
//
// Interrupts:
// Cancelling the context stops the walk at the next record or file
// boundary. The run then behaves as if it had finished: the store is
// flushed, the tables are exported and the journal run is closed with
// status "interrupted". Run returns ErrInterrupted alongside the Result.
//
// Malformed input:
// Records and files that cannot be decoded are logged with their location
// and skipped. They never abort a run.
package runner
