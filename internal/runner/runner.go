package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/worldtext/internal/config"
	"github.com/roach88/worldtext/internal/export"
	"github.com/roach88/worldtext/internal/extract"
	"github.com/roach88/worldtext/internal/journal"
	"github.com/roach88/worldtext/internal/nbt"
	"github.com/roach88/worldtext/internal/world"
)

// ErrInterrupted is returned when the context is cancelled mid-run. The
// records processed so far are saved and the key tables are exported
// before it is returned.
var ErrInterrupted = errors.New("run interrupted")

// RecordStore is the world storage a run walks.
type RecordStore interface {
	Dimensions() []string
	Records(dim string) ([]world.Handle, error)
	Read(h world.Handle) (*nbt.Compound, error)
	Write(h world.Handle, root *nbt.Compound) error
	Flush() error
	Close() error
}

// Journal receives run progress. *journal.Journal implements it.
type Journal interface {
	BeginRun(ctx context.Context, world string) (string, error)
	AppendKeys(ctx context.Context, runID string, entries []extract.Entry) error
	Checkpoint(ctx context.Context, runID string, records, keys int64) error
	FinishRun(ctx context.Context, runID, status string) error
}

// Clock supplies the time used to name backups.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Runner.
type Options struct {
	// Journal, when set, records the run. Nil disables journaling.
	Journal Journal

	// Output overrides the configured key-table output base.
	Output string

	// OpenStore opens the record store of a save. Defaults to world.Open.
	OpenStore func(root string, log *slog.Logger) (RecordStore, error)

	Clock  Clock
	Logger *slog.Logger
}

// Result summarises a finished run.
type Result struct {
	RunID       string
	Stats       extract.Stats
	Keys        int
	Skipped     int // records that could not be read
	Files       int // data-pack and structure files rewritten
	Backup      string
	RawPath     string
	MergedPath  string
	Interrupted bool
}

// Runner drives extraction over a world save or a data-pack directory.
type Runner struct {
	cfg     *config.Config
	journal Journal
	output  string
	open    func(root string, log *slog.Logger) (RecordStore, error)
	clock   Clock
	log     *slog.Logger
}

// New creates a Runner.
func New(cfg *config.Config, opts Options) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{
		cfg:     cfg,
		journal: opts.Journal,
		output:  opts.Output,
		open:    opts.OpenStore,
		clock:   opts.Clock,
		log:     opts.Logger,
	}
	if r.output == "" {
		r.output = cfg.Lang.Output
	}
	if r.open == nil {
		r.open = openWorld
	}
	if r.clock == nil {
		r.clock = systemClock{}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

func openWorld(root string, log *slog.Logger) (RecordStore, error) {
	return world.Open(root, world.Options{Logger: log})
}

// session is the state of one run.
type session struct {
	*Runner
	ctx     context.Context
	ec      *extract.Context
	store   RecordStore
	runID   string
	pending []extract.Entry
	since   int // records since the last checkpoint
	res     *Result
}

// Run extracts every text of the save at root, rewrites it in place and
// writes the key tables.
//
// Order: backup, level.dat data version, region and entity records per
// dimension (checkpointing every save_threshold records), scoreboard.dat,
// level.dat boss bars, data packs, generated structures, export.
//
// Cancelling ctx stops the walk at the next record boundary; the current
// state is flushed and exported and ErrInterrupted is returned together
// with the partial Result.
func (r *Runner) Run(ctx context.Context, root string) (*Result, error) {
	root = cleanPath(root)
	res := &Result{}

	if r.cfg.Backup {
		dst := root + "_backup_" + r.clock.Now().Format("20060102-150405")
		r.log.Info("backing up world", "from", root, "to", dst)
		if err := world.Backup(root, dst); err != nil {
			return nil, err
		}
		res.Backup = dst
	}

	store, err := r.open(root, r.log)
	if err != nil {
		return nil, fmt.Errorf("open world: %w", err)
	}
	w, _ := store.(*world.World)

	legacy := false
	if w != nil {
		ld, err := w.LevelData()
		if err != nil {
			store.Close()
			return nil, err
		}
		legacy = ld.LegacySpawners()
		r.log.Info("world opened", "name", ld.Name, "data_version", ld.DataVersion, "legacy_spawners", legacy)
	}

	s, err := r.begin(ctx, root, legacy, res)
	if err != nil {
		store.Close()
		return nil, err
	}
	s.store = store

	walkErr := s.walkRecords()
	if walkErr == nil && w != nil {
		walkErr = s.miscFiles(w)
	}

	if err := store.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("save world: %w", err)
	}
	return s.finish(walkErr)
}

// cleanPath makes p absolute so that "world/" and "." name the directory
// itself and a backup derived from it lands next to it.
func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// RunDatapacks rewrites the data-pack text files and structures below dir
// without touching any world save.
func (r *Runner) RunDatapacks(ctx context.Context, dir string) (*Result, error) {
	dir = cleanPath(dir)
	res := &Result{}
	s, err := r.begin(ctx, dir, false, res)
	if err != nil {
		return nil, err
	}
	return s.finish(s.walkTree(dir, true))
}

// begin sets up the extraction context and the journal run.
func (r *Runner) begin(ctx context.Context, root string, legacy bool, res *Result) (*session, error) {
	s := &session{Runner: r, ctx: ctx, res: res}

	opts := r.cfg.ExtractOptions(legacy)
	opts.Logger = r.log
	opts.OnMint = func(e extract.Entry) { s.pending = append(s.pending, e) }
	s.ec = extract.New(opts)

	if r.journal != nil {
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		id, err := r.journal.BeginRun(ctx, abs)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		s.runID = id
		res.RunID = id
		// Seeded rows lead the raw table.
		if err := r.journal.AppendKeys(ctx, id, s.ec.Registry().Raw()); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	return s, nil
}

// interrupted reports whether the run has been cancelled, marking the
// result the first time.
func (s *session) interrupted() bool {
	if s.ctx.Err() == nil {
		return false
	}
	if !s.res.Interrupted {
		s.log.Warn("interrupt received, saving progress")
		s.res.Interrupted = true
	}
	return true
}

// walkRecords processes every region and entity record in traversal order.
func (s *session) walkRecords() error {
	threshold := s.cfg.SaveThreshold
	for _, dim := range s.store.Dimensions() {
		handles, err := s.store.Records(dim)
		if err != nil {
			return fmt.Errorf("list %s: %w", dim, err)
		}
		s.log.Info("processing dimension", "dimension", dim, "records", len(handles))

		for _, h := range handles {
			if s.interrupted() {
				return nil
			}
			root, err := s.store.Read(h)
			if err != nil {
				s.log.Error("skipping unreadable record", "record", h.String(), "error", err)
				s.res.Skipped++
				continue
			}

			var changed bool
			if h.Kind == world.KindEntities {
				changed = s.ec.EntityChunk(root)
			} else {
				changed = s.ec.Chunk(root)
			}
			if changed {
				if err := s.store.Write(h, root); err != nil {
					return fmt.Errorf("write %s: %w", h, err)
				}
			}

			s.since++
			if threshold > 0 && s.since >= threshold {
				if err := s.checkpoint(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkpoint flushes the store and records progress in the journal.
func (s *session) checkpoint() error {
	s.since = 0
	if s.store != nil {
		if err := s.store.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	st := s.ec.Stats()
	s.log.Info("checkpoint", "records", st.Records, "changed", st.Changed, "keys", s.ec.Registry().Len())
	return s.journalProgress(st.Records)
}

// journalProgress appends pending keys and a checkpoint row. It runs even
// after cancellation so an interrupted run is still recorded.
func (s *session) journalProgress(records int64) error {
	if s.journal == nil {
		s.pending = s.pending[:0]
		return nil
	}
	ctx := context.WithoutCancel(s.ctx)
	if err := s.journal.AppendKeys(ctx, s.runID, s.pending); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	s.pending = s.pending[:0]
	if err := s.journal.Checkpoint(ctx, s.runID, records, s.ec.Registry().Minted()); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// finish exports the tables, closes the journal run and builds the result.
func (s *session) finish(walkErr error) (*Result, error) {
	st := s.ec.Stats()
	if err := s.journalProgress(st.Records); err != nil && walkErr == nil {
		walkErr = err
	}

	status := journal.StatusDone
	switch {
	case walkErr != nil:
		status = journal.StatusFailed
	case s.res.Interrupted:
		status = journal.StatusInterrupted
	}

	if walkErr == nil {
		if err := s.export(); err != nil {
			walkErr = err
			status = journal.StatusFailed
		}
	}

	if s.journal != nil {
		if err := s.journal.FinishRun(context.WithoutCancel(s.ctx), s.runID, status); err != nil && walkErr == nil {
			walkErr = fmt.Errorf("journal: %w", err)
		}
	}

	s.res.Stats = s.ec.Stats()
	s.res.Keys = s.ec.Registry().Len()
	for _, re := range s.ec.Runaways() {
		s.log.Warn("loop guard tripped", "error", re)
	}
	s.log.Info("run finished", "status", status,
		"records", s.res.Stats.Records, "changed", s.res.Stats.Changed,
		"keys", s.res.Keys, "skipped", s.res.Skipped, "files", s.res.Files)

	if walkErr != nil {
		return s.res, walkErr
	}
	if s.res.Interrupted {
		return s.res, ErrInterrupted
	}
	return s.res, nil
}

// export writes the raw and merged key tables.
func (s *session) export() error {
	if err := s.cfg.ExportWriter().WriteTables(s.output, s.ec.Registry().Raw()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	s.res.RawPath, s.res.MergedPath = export.Paths(s.output)
	s.log.Info("key tables written", "raw", s.res.RawPath, "merged", s.res.MergedPath)
	return nil
}
