// Package pipeline sequences toolchain invocations into a deterministic,
// fail-fast build run.
//
// A run is: clean the well-known artifacts, open the shared log file
// append-only, execute every step strictly in order, abort on the first
// non-zero exit. There is no retry, no recovery, and no partial-success
// reporting; all toolchain diagnostics live in the log file.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zokbuild/zokbuild/internal/artifact"
	"github.com/zokbuild/zokbuild/internal/config"
	"github.com/zokbuild/zokbuild/internal/toolchain"
)

// Step is a single toolchain invocation within a plan.
type Step struct {
	Name       string   `json:"name"`
	Subcommand string   `json:"subcommand"`
	Args       []string `json:"args,omitempty"`
}

// Command renders the step as the command line handed to the binary,
// without the binary path itself.
func (s Step) Command() string {
	out := s.Subcommand
	for _, arg := range s.Args {
		out += " " + arg
	}
	return out
}

// Step constructors for the documented toolchain surface.

func CheckStep(circuit string) Step {
	return Step{Name: "check", Subcommand: "check", Args: []string{"--input", circuit}}
}

func CompileStep(circuit string) Step {
	return Step{Name: "compile", Subcommand: "compile", Args: []string{"--input", circuit}}
}

func SetupStep() Step {
	return Step{Name: "setup", Subcommand: "setup"}
}

func ExportVerifierStep() Step {
	return Step{Name: "export-verifier", Subcommand: "export-verifier"}
}

func ComputeWitnessStep(args []string) Step {
	step := Step{Name: "compute-witness", Subcommand: "compute-witness"}
	if len(args) > 0 {
		step.Args = append([]string{"-a"}, args...)
	}
	return step
}

func GenerateProofStep() Step {
	return Step{Name: "generate-proof", Subcommand: "generate-proof"}
}

// Plan is an ordered sequence of steps plus where to run them.
type Plan struct {
	Circuit string `json:"circuit"`
	Dir     string `json:"dir"`
	LogFile string `json:"log_file"`
	Steps   []Step `json:"steps"`
}

// BuildPlan returns the fixed build sequence for the configured circuit:
// check, compile, setup. With exportVerifier the verifier-contract export
// is appended after setup.
func BuildPlan(cfg config.Config, exportVerifier bool) Plan {
	steps := []Step{
		CheckStep(cfg.Circuit),
		CompileStep(cfg.Circuit),
		SetupStep(),
	}
	if exportVerifier {
		steps = append(steps, ExportVerifierStep())
	}
	return Plan{
		Circuit: cfg.Circuit,
		Dir:     cfg.Dir,
		LogFile: cfg.LogFile,
		Steps:   steps,
	}
}

// Run statuses recorded in the result and in the history store.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Result describes one run, successful or not. Invocations holds every
// step that was actually attempted; steps after the first failure never
// appear.
type Result struct {
	RunID       string                 `json:"run_id"`
	Circuit     string                 `json:"circuit"`
	Status      string                 `json:"status"`
	FailedStep  string                 `json:"failed_step,omitempty"`
	Invocations []toolchain.Invocation `json:"invocations"`
	Digests     map[string]string      `json:"digests,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
}

// Runner executes plans against one toolchain installation.
type Runner struct {
	Toolchain toolchain.Toolchain
	Logger    zerolog.Logger
}

// Run executes the plan. On failure the returned Result is still populated
// (status, failed step, attempted invocations) so callers can record it;
// the error wraps the step's ExecError.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	res := &Result{
		RunID:     runID.String(),
		Circuit:   plan.Circuit,
		Status:    StatusFailed,
		StartedAt: time.Now().UTC(),
	}
	logger := r.Logger.With().Str("run_id", res.RunID).Str("circuit", plan.Circuit).Logger()

	removed, err := artifact.Clean(plan.Dir)
	if err != nil {
		res.FinishedAt = time.Now().UTC()
		return res, fmt.Errorf("clean artifacts: %w", err)
	}
	logger.Debug().Strs("removed", removed).Msg("cleaned stale artifacts")

	logPath := filepath.Join(plan.Dir, plan.LogFile)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		res.FinishedAt = time.Now().UTC()
		return res, fmt.Errorf("open log %s: %w", plan.LogFile, err)
	}
	defer logFile.Close()

	for _, step := range plan.Steps {
		logger.Info().Str("step", step.Name).Msg("running toolchain step")
		inv, err := r.Toolchain.Invoke(ctx, plan.Dir, logFile, step.Subcommand, step.Args...)
		res.Invocations = append(res.Invocations, inv)
		if err != nil {
			res.FailedStep = step.Name
			res.FinishedAt = time.Now().UTC()
			logger.Error().Str("step", step.Name).Int("exit_code", inv.ExitCode).Msg("toolchain step failed, aborting run")
			return res, fmt.Errorf("step %s: %w", step.Name, err)
		}
		logger.Debug().Str("step", step.Name).Dur("took", inv.Duration).Msg("toolchain step done")
	}

	digests, err := artifact.Digests(plan.Dir)
	if err != nil {
		res.FinishedAt = time.Now().UTC()
		return res, fmt.Errorf("digest artifacts: %w", err)
	}
	res.Digests = digests
	res.Status = StatusOK
	res.FinishedAt = time.Now().UTC()
	logger.Info().Int("steps", len(res.Invocations)).Msg("run complete")
	return res, nil
}
