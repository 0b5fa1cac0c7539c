// Package cli wires the zokbuild commands: a deterministic, fail-fast
// front end over an external zero-knowledge-proof toolchain binary.
package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zokbuild/zokbuild/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is an optional config file path; empty uses the default
	// lookup (zokbuild.yaml in the working directory).
	Config string

	// Path overrides. Empty means "not given"; flags beat environment,
	// environment beats config file, config file beats defaults.
	Bin     string
	Home    string
	Circuit string
	Dir     string
	LogFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the zokbuild CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "zokbuild",
		Short: "Deterministic runner for the ZoKrates toolchain",
		Long: `zokbuild drives an external zero-knowledge-proof toolchain binary
through a fixed, fail-fast build sequence (check, compile, setup) against a
circuit file, cleaning stale artifacts first and appending all toolchain
output to a shared log file.

The toolchain itself is an opaque collaborator: zokbuild never implements
any compiler or prover logic.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default zokbuild.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.Bin, "bin", "", "toolchain binary (overrides ZOKRATES_BIN)")
	cmd.PersistentFlags().StringVar(&opts.Home, "home", "", "toolchain stdlib directory (overrides ZOKRATES_HOME)")
	cmd.PersistentFlags().StringVar(&opts.Circuit, "circuit", "", "circuit source file (default legalage.zok)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "working directory for artifacts and log")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "shared toolchain log file, relative to dir (default log)")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	for _, step := range passthroughSteps {
		cmd.AddCommand(newPassthroughCommand(opts, step))
	}
	cmd.AddCommand(NewComputeWitnessCommand(opts))

	return cmd
}

// resolveConfig builds the effective configuration: defaults, config file,
// environment, then the command-line overrides.
func (o *RootOptions) resolveConfig() (config.Config, error) {
	cfg, err := config.Resolve(o.Config)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Merge(config.Config{
		Bin:     o.Bin,
		Home:    o.Home,
		Circuit: o.Circuit,
		Dir:     o.Dir,
		LogFile: o.LogFile,
	})
	return cfg, nil
}

// newFormatter builds the output formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger builds the diagnostic logger. Diagnostics go to stderr only;
// the artifact log file carries nothing but raw toolchain output.
func newLogger(opts *RootOptions, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
