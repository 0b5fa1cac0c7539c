// Package testutil provides test doubles for the external toolchain.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeToolchain is a generated shell script standing in for the real
// toolchain binary. Every invocation appends its argv and the observed
// ZOKRATES_HOME to a journal file, prints a recognizable line to stdout,
// and emits plausible artifacts for the compile and setup subcommands.
type FakeToolchain struct {
	// Bin is the path of the generated script.
	Bin string

	// Journal is the file the script appends its invocation records to.
	Journal string
}

// FakeOptions configures the generated script.
type FakeOptions struct {
	// FailOn names a subcommand that prints a diagnostic to stderr and
	// exits 1. Empty means every subcommand succeeds.
	FailOn string
}

const fakeScript = `#!/bin/sh
sub="$1"
printf 'argv %%s\n' "$*" >> %q
printf 'home %%s\n' "$ZOKRATES_HOME" >> %q
printf '%%s output\n' "$sub"
if [ "$sub" = %q ]; then
	printf '%%s failed\n' "$sub" >&2
	exit 1
fi
case "$sub" in
compile)
	printf 'program\n' > out
	printf 'program\n' > out.ztf
	printf '{"inputs":[]}\n' > abi.json
	;;
setup)
	printf 'pk\n' > proving.key
	printf 'vk\n' > verification.key
	;;
esac
exit 0
`

// NewFakeToolchain writes the script into a fresh temp directory and
// returns handles to it. The script requires a POSIX shell.
func NewFakeToolchain(t *testing.T, opts FakeOptions) *FakeToolchain {
	t.Helper()

	failOn := opts.FailOn
	if failOn == "" {
		failOn = "__never__"
	}

	dir := t.TempDir()
	f := &FakeToolchain{
		Bin:     filepath.Join(dir, "zokrates"),
		Journal: filepath.Join(dir, "journal"),
	}
	script := fmt.Sprintf(fakeScript, f.Journal, f.Journal, failOn)
	require.NoError(t, os.WriteFile(f.Bin, []byte(script), 0755))
	return f
}

// Invocations returns the argv line of every recorded invocation, in order.
func (f *FakeToolchain) Invocations(t *testing.T) []string {
	t.Helper()
	return f.journalLines(t, "argv ")
}

// Homes returns the ZOKRATES_HOME value observed by every invocation.
func (f *FakeToolchain) Homes(t *testing.T) []string {
	t.Helper()
	return f.journalLines(t, "home ")
}

func (f *FakeToolchain) journalLines(t *testing.T, prefix string) []string {
	t.Helper()

	data, err := os.ReadFile(f.Journal)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var lines []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if strings.HasPrefix(line, prefix) {
			lines = append(lines, strings.TrimPrefix(line, prefix))
		}
	}
	return lines
}
