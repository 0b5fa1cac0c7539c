package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zokbuild/zokbuild/internal/artifact"
	"github.com/zokbuild/zokbuild/internal/config"
	"github.com/zokbuild/zokbuild/internal/history"
	"github.com/zokbuild/zokbuild/internal/pipeline"
	"github.com/zokbuild/zokbuild/internal/toolchain"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	DryRun         bool
	ExportVerifier bool
	Database       string
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full build sequence: clean, check, compile, setup",
		Long: `Run the full build sequence against the configured circuit.

Stale artifacts (out, out.ztf, proving.key, verification.key, abi.json, log)
are removed first. The toolchain is then invoked with check, compile and
setup, strictly in order, aborting on the first failure. All toolchain
output is appended to the shared log file.

Example:
  zokbuild build
  zokbuild build --circuit legalage.zok --db runs.db
  ZOKRATES_BIN=/opt/zokrates/bin/zokrates zokbuild build`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the plan without invoking the toolchain")
	cmd.Flags().BoolVar(&opts.ExportVerifier, "export-verifier", false, "append the verifier-contract export step")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this history database")

	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.resolveConfig()
	if err != nil {
		return commandError(formatter, ErrCodeConfig, err.Error())
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	plan := pipeline.BuildPlan(cfg, opts.ExportVerifier)
	if opts.DryRun {
		return outputPlan(formatter, plan)
	}

	formatter.VerboseLog("toolchain binary: %s", cfg.Bin)
	formatter.VerboseLog("toolchain home: %s", cfg.Home)

	runner := &pipeline.Runner{
		Toolchain: toolchain.New(cfg.Bin, cfg.Home),
		Logger:    newLogger(opts.RootOptions, cmd.ErrOrStderr()),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, runErr := runner.Run(ctx, plan)

	// Record the run, failed or not, before reporting the outcome.
	var recordErr error
	if cfg.Database != "" && res != nil {
		recordErr = recordRun(ctx, cfg, res)
	}

	if runErr != nil {
		var execErr *toolchain.ExecError
		if errors.As(runErr, &execErr) {
			msg := fmt.Sprintf("step %s failed: %v (see %s)", res.FailedStep, execErr, plan.LogFile)
			_ = formatter.Error(ErrCodeToolchain, msg, nil)
			return WrapExitError(ExitFailure, msg, runErr)
		}
		_ = formatter.Error(ErrCodeClean, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "build aborted", runErr)
	}

	if recordErr != nil {
		_ = formatter.Error(ErrCodeHistory, recordErr.Error(), nil)
		return WrapExitError(ExitCommandError, "build succeeded but history recording failed", recordErr)
	}

	return outputBuildSuccess(formatter, res)
}

func recordRun(ctx context.Context, cfg config.Config, res *pipeline.Result) error {
	st, err := history.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer st.Close()

	if err := st.WriteRun(ctx, history.FromResult(res)); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// outputPlan renders a dry run.
func outputPlan(formatter *OutputFormatter, plan pipeline.Plan) error {
	if formatter.Format == "json" {
		return formatter.Success(plan)
	}

	fmt.Fprintf(formatter.Writer, "Build plan for %s\n\n", plan.Circuit)
	fmt.Fprintln(formatter.Writer, "Steps:")
	for i, step := range plan.Steps {
		fmt.Fprintf(formatter.Writer, "  %d. %s\n", i+1, step.Command())
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Cleans first: out, out.ztf, proving.key, verification.key, abi.json, log\n")
	fmt.Fprintf(formatter.Writer, "Log file: %s\n", plan.LogFile)
	return nil
}

// outputBuildSuccess renders a completed run.
func outputBuildSuccess(formatter *OutputFormatter, res *pipeline.Result) error {
	if formatter.Format == "json" {
		return formatter.Success(res)
	}

	fmt.Fprintf(formatter.Writer, "✓ Built %s (%d steps)\n\n", res.Circuit, len(res.Invocations))
	fmt.Fprintln(formatter.Writer, "Steps:")
	for _, inv := range res.Invocations {
		fmt.Fprintf(formatter.Writer, "  %-16s exit %d\n", inv.Subcommand, inv.ExitCode)
	}

	if len(res.Digests) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Artifacts:")
		for _, name := range artifactOrder(res.Digests) {
			fmt.Fprintf(formatter.Writer, "  %-18s %.12s\n", name, res.Digests[name])
		}
	}
	return nil
}

// artifactOrder returns present digest keys in canonical artifact order.
func artifactOrder(digests map[string]string) []string {
	var names []string
	for _, name := range artifact.Names {
		if _, ok := digests[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
