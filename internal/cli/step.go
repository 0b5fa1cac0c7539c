package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zokbuild/zokbuild/internal/config"
	"github.com/zokbuild/zokbuild/internal/pipeline"
	"github.com/zokbuild/zokbuild/internal/toolchain"
)

// passthroughSpec describes a command that maps one-to-one onto a
// toolchain subcommand: no cleaning, no sequencing, just a single
// invocation appending to the shared log.
type passthroughSpec struct {
	use   string
	short string
	step  func(cfg config.Config) pipeline.Step
}

var passthroughSteps = []passthroughSpec{
	{
		use:   "check",
		short: "Type-check the circuit source",
		step:  func(cfg config.Config) pipeline.Step { return pipeline.CheckStep(cfg.Circuit) },
	},
	{
		use:   "compile",
		short: "Compile the circuit to the toolchain's intermediate form",
		step:  func(cfg config.Config) pipeline.Step { return pipeline.CompileStep(cfg.Circuit) },
	},
	{
		use:   "setup",
		short: "Generate the proving and verification keys",
		step:  func(cfg config.Config) pipeline.Step { return pipeline.SetupStep() },
	},
	{
		use:   "export-verifier",
		short: "Export the verifier contract from the verification key",
		step:  func(cfg config.Config) pipeline.Step { return pipeline.ExportVerifierStep() },
	},
	{
		use:   "generate-proof",
		short: "Generate a proof from the computed witness",
		step:  func(cfg config.Config) pipeline.Step { return pipeline.GenerateProofStep() },
	},
}

func newPassthroughCommand(rootOpts *RootOptions, spec passthroughSpec) *cobra.Command {
	return &cobra.Command{
		Use:           spec.use,
		Short:         spec.short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, formatter, err := stepSetup(rootOpts, cmd)
			if err != nil {
				return err
			}
			return runStep(rootOpts, formatter, cfg, spec.step(cfg), cmd)
		},
	}
}

// ComputeWitnessOptions holds flags for the compute-witness command.
type ComputeWitnessOptions struct {
	*RootOptions
	Args []string
}

// NewComputeWitnessCommand creates the compute-witness command. Witness
// arguments are handed to the toolchain verbatim.
func NewComputeWitnessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeWitnessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute-witness",
		Short: "Compute a witness for the compiled circuit",
		Long: `Compute a witness for the compiled circuit.

Arguments are passed through to the toolchain unmodified:

  zokbuild compute-witness --args 2455048,18,2455049,...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, formatter, err := stepSetup(rootOpts, cmd)
			if err != nil {
				return err
			}
			return runStep(rootOpts, formatter, cfg, pipeline.ComputeWitnessStep(opts.Args), cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Args, "args", nil, "witness arguments, passed to the toolchain after -a")

	return cmd
}

func stepSetup(opts *RootOptions, cmd *cobra.Command) (config.Config, *OutputFormatter, error) {
	formatter := newFormatter(opts, cmd)
	cfg, err := opts.resolveConfig()
	if err != nil {
		return config.Config{}, formatter, commandError(formatter, ErrCodeConfig, err.Error())
	}
	return cfg, formatter, nil
}

func runStep(opts *RootOptions, formatter *OutputFormatter, cfg config.Config, step pipeline.Step, cmd *cobra.Command) error {
	logPath := filepath.Join(cfg.Dir, cfg.LogFile)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("open log %s: %v", cfg.LogFile, err))
	}
	defer logFile.Close()

	formatter.VerboseLog("invoking: %s %s", cfg.Bin, step.Command())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tc := toolchain.New(cfg.Bin, cfg.Home)
	inv, err := tc.Invoke(ctx, cfg.Dir, logFile, step.Subcommand, step.Args...)
	if err != nil {
		msg := fmt.Sprintf("%v (see %s)", err, cfg.LogFile)
		_ = formatter.Error(ErrCodeToolchain, msg, nil)
		return WrapExitError(ExitFailure, msg, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(inv)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s (exit %d)\n", step.Name, inv.ExitCode)
	return nil
}
