package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zokbuild/zokbuild/internal/history"
	"github.com/zokbuild/zokbuild/internal/pipeline"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	FailedOnly bool
	Limit      int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs",
		Long: `List pipeline runs recorded with build --db, newest first.

Example:
  zokbuild history --db runs.db
  zokbuild history --db runs.db --failed --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "history database path")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "list only failed runs")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := history.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeHistory, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := st.ListRuns(ctx, history.ListOptions{
		FailedOnly: opts.FailedOnly,
		Limit:      opts.Limit,
	})
	if err != nil {
		return commandError(formatter, ErrCodeHistory, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}

	for _, run := range runs {
		status := "ok"
		if run.Status == pipeline.StatusFailed {
			status = fmt.Sprintf("failed at %s", run.FailedStep)
		}
		fmt.Fprintf(formatter.Writer, "%s  %s  %-9s %d step(s)  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			status,
			len(run.Steps),
			run.Circuit,
		)
	}
	return nil
}
