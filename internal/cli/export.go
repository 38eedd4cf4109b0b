package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/worldtext/internal/export"
	"github.com/roach88/worldtext/internal/journal"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Journal string
	RunID   string // empty selects the latest run
	Output  string
}

// ExportResult is the output of the export command.
type ExportResult struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Keys   int    `json:"keys"`
	Merged int    `json:"merged"`
	Raw    string `json:"raw"`
	Out    string `json:"merged_path"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Rebuild key tables from the journal",
		Long: `Rebuild the raw and merged key tables of a journaled run.

The tables hold exactly the keys of the records that were saved, so a run
that was interrupted or crashed can still be exported. Output settings
come from the config.

Examples:
  worldtext export --journal runs.db
  worldtext export --journal runs.db --run 0190... --output lang/mymap`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to export (default: latest)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "key-table output base (default from config)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	j, err := openExistingJournal(opts.Journal, cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := selectRun(ctx, j, opts.RunID)
	if err != nil {
		return err
	}

	entries, err := j.Keys(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read keys", err)
	}

	base := opts.Output
	if base == "" {
		base = cfg.Lang.Output
	}
	if err := cfg.ExportWriter().WriteTables(base, entries); err != nil {
		return WrapExitError(ExitFailure, "failed to write key tables", err)
	}

	raw, merged := export.Paths(base)
	result := ExportResult{
		RunID:  run.ID,
		Status: run.Status,
		Keys:   len(entries),
		Merged: len(export.Merged(entries)),
		Raw:    raw,
		Out:    merged,
	}

	return newFormatter(cmd, opts.RootOptions).RunSuccess(result.RunID, result, func(w io.Writer) {
		fmt.Fprintf(w, "Run:     %s (%s)\n", result.RunID, result.Status)
		fmt.Fprintf(w, "Keys:    %d (%d merged)\n", result.Keys, result.Merged)
		fmt.Fprintf(w, "Raw:     %s\n", result.Raw)
		fmt.Fprintf(w, "Merged:  %s\n", result.Out)
	})
}

// openExistingJournal opens the journal named by flag, falling back to the
// configured one. Unlike a run, export never creates a journal.
func openExistingJournal(flag, configured string) (*journal.Journal, error) {
	path := flag
	if path == "" {
		path = configured
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no journal: pass --journal or set journal in the config")
	}
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	j, err := journal.Open(path, journal.Options{})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

func selectRun(ctx context.Context, j *journal.Journal, id string) (journal.Run, error) {
	var (
		run journal.Run
		err error
	)
	if id == "" {
		run, err = j.LatestRun(ctx)
	} else {
		run, err = j.Run(ctx, id)
	}
	if errors.Is(err, journal.ErrNoRun) {
		if id == "" {
			return run, NewExitError(ExitCommandError, "journal has no runs")
		}
		return run, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return run, WrapExitError(ExitFailure, "failed to read run", err)
	}
	return run, nil
}
