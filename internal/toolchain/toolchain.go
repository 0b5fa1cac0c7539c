// Package toolchain runs the external zero-knowledge-proof toolchain
// binary. The binary is an opaque collaborator: this package never
// interprets what a subcommand does, it only executes it synchronously and
// captures the outcome.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/zokbuild/zokbuild/internal/config"
)

// Toolchain is a resolved toolchain installation.
type Toolchain struct {
	// Bin is the binary to execute.
	Bin string

	// Home is exported to the child process as ZOKRATES_HOME so the
	// toolchain finds its standard library.
	Home string
}

// Invocation records one completed (or attempted) child-process run.
type Invocation struct {
	Subcommand string        `json:"subcommand"`
	Args       []string      `json:"args,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration_ns"`
}

// ExecError reports a failed toolchain invocation. ExitCode is the child's
// exit status, or -1 when the process could not be started at all (missing
// binary, permission error).
type ExecError struct {
	Subcommand string
	ExitCode   int
	Err        error
}

func (e *ExecError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("toolchain %s exited with code %d", e.Subcommand, e.ExitCode)
	}
	return fmt.Sprintf("toolchain %s could not run: %v", e.Subcommand, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// New returns a Toolchain for the given binary and home directory.
func New(bin, home string) Toolchain {
	return Toolchain{Bin: bin, Home: home}
}

// Invoke runs `<bin> <subcommand> <args...>` in dir, blocking until the
// child exits. Both stdout and stderr are written to logW in arrival
// order, so successive invocations sharing one writer produce a
// concatenated log. The call honors ctx cancellation.
func (t Toolchain) Invoke(ctx context.Context, dir string, logW io.Writer, subcommand string, args ...string) (Invocation, error) {
	cmd := exec.CommandContext(ctx, t.Bin, append([]string{subcommand}, args...)...)
	cmd.Dir = dir
	cmd.Stdout = logW
	cmd.Stderr = logW
	cmd.Env = append(os.Environ(), config.EnvHome+"="+t.Home)

	start := time.Now()
	err := cmd.Run()
	inv := Invocation{
		Subcommand: subcommand,
		Args:       args,
		Duration:   time.Since(start),
	}
	if err != nil {
		inv.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			inv.ExitCode = exitErr.ExitCode()
		}
		return inv, &ExecError{Subcommand: subcommand, ExitCode: inv.ExitCode, Err: err}
	}
	return inv, nil
}
