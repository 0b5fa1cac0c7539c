package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zokbuild/zokbuild/internal/artifact"
)

// CleanResult holds the outcome of a clean for structured output.
type CleanResult struct {
	Dir     string   `json:"dir"`
	Removed []string `json:"removed"`
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove stale toolchain artifacts",
		Long: `Remove the well-known toolchain artifacts from the working directory:
out, out.ztf, proving.key, verification.key, abi.json and the log file.
Missing artifacts are ignored.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(rootOpts, cmd)
		},
	}
}

func runClean(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := opts.resolveConfig()
	if err != nil {
		return commandError(formatter, ErrCodeConfig, err.Error())
	}

	removed, err := artifact.Clean(cfg.Dir)
	if err != nil {
		return commandError(formatter, ErrCodeClean, err.Error())
	}

	result := CleanResult{Dir: cfg.Dir, Removed: removed}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(removed) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ Nothing to clean")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Removed %d artifact(s): %s\n", len(removed), strings.Join(removed, ", "))
	return nil
}
