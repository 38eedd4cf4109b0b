package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/worldtext/internal/config"
	"github.com/roach88/worldtext/internal/journal"
	"github.com/roach88/worldtext/internal/runner"
)

// RunOptions holds flags for the run and datapack commands.
type RunOptions struct {
	*RootOptions
	Journal string // journal database; overrides the config
	Output  string // key-table output base; overrides the config

	// IDs allows overriding the journal run ID generator (for testing).
	IDs journal.IDGenerator

	// Clock allows overriding the clock used for backup names and journal
	// timestamps (for testing).
	Clock interface {
		journal.Clock
		runner.Clock
	}
}

// RunSummary is the output of a finished run.
type RunSummary struct {
	RunID       string `json:"run_id,omitempty"`
	Records     int64  `json:"records"`
	Changed     int64  `json:"changed"`
	Skipped     int    `json:"skipped"`
	Files       int    `json:"files"`
	Keys        int    `json:"keys"`
	Rewrites    int64  `json:"rewrites"`
	Reused      int64  `json:"reused"`
	Defaults    int64  `json:"defaults"`
	Runaways    int    `json:"runaways"`
	Backup      string `json:"backup,omitempty"`
	Raw         string `json:"raw"`
	Merged      string `json:"merged"`
	Interrupted bool   `json:"interrupted"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <world-dir>",
		Short: "Extract the text of a world save",
		Long: `Extract every literal text of a world save into translation keys.

The world is backed up first (unless backup is disabled in the config),
then rewritten in place. The raw and merged key tables are written to
<output>_original.json and <output>_cleared.json.

Ctrl-C stops the run at the next record: the records processed so far
are saved and the tables exported before the command exits.

Examples:
  worldtext run ./saves/MyMap
  worldtext run ./saves/MyMap --config worldtext.yaml --journal runs.db
  worldtext run ./saves/MyMap --output lang/mymap --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtraction(opts, cmd, func(ctx context.Context, r *runner.Runner) (*runner.Result, error) {
				return r.Run(ctx, args[0])
			})
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

// NewDatapackCommand creates the datapack command.
func NewDatapackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "datapack <dir>",
		Short: "Extract the text of a data-pack directory",
		Long: `Extract the text of function, JSON and structure files below a
directory, without a world save around it. Files are rewritten in place.

Examples:
  worldtext datapack ./datapacks/mypack
  worldtext datapack ./datapacks --output lang/packs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtraction(opts, cmd, func(ctx context.Context, r *runner.Runner) (*runner.Result, error) {
				return r.RunDatapacks(ctx, args[0])
			})
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "key-table output base (default from config)")
}

func runExtraction(opts *RunOptions, cmd *cobra.Command, do func(context.Context, *runner.Runner) (*runner.Result, error)) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	if cfg.Source != "" {
		log.Info("config loaded", "path", cfg.Source)
	}

	ropts := runner.Options{Output: opts.Output, Logger: log}
	if opts.Clock != nil {
		ropts.Clock = opts.Clock
	}

	j, err := openJournal(opts, cfg, log)
	if err != nil {
		return err
	}
	if j != nil {
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		ropts.Journal = j
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := do(ctx, runner.New(cfg, ropts))
	if err != nil && !errors.Is(err, runner.ErrInterrupted) {
		return WrapExitError(ExitFailure, "extraction failed", err)
	}

	summary := summarize(res)
	return newFormatter(cmd, opts.RootOptions).RunSuccess(summary.RunID, summary, func(w io.Writer) {
		printSummary(w, summary)
	})
}

// openJournal opens the journal named by --journal or the config. Returns
// nil when journaling is off.
func openJournal(opts *RunOptions, cfg *config.Config, log *slog.Logger) (*journal.Journal, error) {
	path := opts.Journal
	if path == "" {
		path = cfg.Journal
	}
	if path == "" {
		return nil, nil
	}

	jopts := journal.Options{IDs: opts.IDs}
	if opts.Clock != nil {
		jopts.Clock = opts.Clock
	}
	j, err := journal.Open(path, jopts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	log.Info("journal ready", "path", path)
	return j, nil
}

func summarize(res *runner.Result) RunSummary {
	return RunSummary{
		RunID:       res.RunID,
		Records:     res.Stats.Records,
		Changed:     res.Stats.Changed,
		Skipped:     res.Skipped,
		Files:       res.Files,
		Keys:        res.Keys,
		Rewrites:    res.Stats.Rewrites,
		Reused:      res.Stats.Reused,
		Defaults:    res.Stats.Defaults,
		Runaways:    res.Stats.Runaways,
		Backup:      res.Backup,
		Raw:         res.RawPath,
		Merged:      res.MergedPath,
		Interrupted: res.Interrupted,
	}
}

func printSummary(w io.Writer, s RunSummary) {
	if s.Interrupted {
		fmt.Fprintln(w, "Run interrupted; progress so far was saved.")
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "Run:       %s\n", s.RunID)
	}
	if s.Backup != "" {
		fmt.Fprintf(w, "Backup:    %s\n", s.Backup)
	}
	fmt.Fprintf(w, "Records:   %d (%d changed, %d skipped)\n", s.Records, s.Changed, s.Skipped)
	fmt.Fprintf(w, "Files:     %d\n", s.Files)
	fmt.Fprintf(w, "Rewrites:  %d (%d reused, %d default)\n", s.Rewrites, s.Reused, s.Defaults)
	fmt.Fprintf(w, "Keys:      %d\n", s.Keys)
	if s.Runaways > 0 {
		fmt.Fprintf(w, "Runaways:  %d (see log)\n", s.Runaways)
	}
	fmt.Fprintf(w, "Raw:       %s\n", s.Raw)
	fmt.Fprintf(w, "Merged:    %s\n", s.Merged)
}
