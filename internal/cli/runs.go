package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/worldtext/internal/journal"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Journal string
	RunID   string // show checkpoints of this run
}

// RunInfo is one journaled run.
type RunInfo struct {
	ID          string           `json:"id"`
	World       string           `json:"world"`
	Status      string           `json:"status"`
	StartedAt   string           `json:"started_at"`
	FinishedAt  string           `json:"finished_at,omitempty"`
	Keys        int              `json:"keys"`
	Checkpoints []CheckpointInfo `json:"checkpoints,omitempty"`
}

// CheckpointInfo is one checkpoint of a run.
type CheckpointInfo struct {
	Seq     int64  `json:"seq"`
	Records int64  `json:"records"`
	Keys    int64  `json:"keys"`
	At      string `json:"at"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs",
		Long: `List the runs recorded in a journal, newest first.

With --run, show one run together with its checkpoints.

Examples:
  worldtext runs --journal runs.db
  worldtext runs --journal runs.db --run 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show one run and its checkpoints")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
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

	var runs []journal.Run
	if opts.RunID != "" {
		run, err := selectRun(ctx, j, opts.RunID)
		if err != nil {
			return err
		}
		runs = []journal.Run{run}
	} else {
		runs, err = j.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list runs", err)
		}
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		info, err := describeRun(ctx, j, run, opts.RunID != "")
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read run", err)
		}
		infos = append(infos, info)
	}

	return newFormatter(cmd, opts.RootOptions).RunSuccess(opts.RunID, infos, func(w io.Writer) {
		printRuns(w, infos)
	})
}

func printRuns(w io.Writer, infos []RunInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  %-11s  %5d keys  %s  %s\n", info.ID, info.Status, info.Keys, info.StartedAt, info.World)
		for _, cp := range info.Checkpoints {
			fmt.Fprintf(w, "  #%d  %d records  %d keys  %s\n", cp.Seq, cp.Records, cp.Keys, cp.At)
		}
	}
}

func describeRun(ctx context.Context, j *journal.Journal, run journal.Run, withCheckpoints bool) (RunInfo, error) {
	info := RunInfo{
		ID:        run.ID,
		World:     run.World,
		Status:    run.Status,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		info.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}

	keys, err := j.Keys(ctx, run.ID)
	if err != nil {
		return info, err
	}
	info.Keys = len(keys)

	if withCheckpoints {
		cps, err := j.Checkpoints(ctx, run.ID)
		if err != nil {
			return info, err
		}
		for _, cp := range cps {
			info.Checkpoints = append(info.Checkpoints, CheckpointInfo{
				Seq:     cp.Seq,
				Records: cp.Records,
				Keys:    cp.Keys,
				At:      cp.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	return info, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
