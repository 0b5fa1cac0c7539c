package main

import (
	"os"

	"github.com/zokbuild/zokbuild/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		// Commands print their own diagnostics; only the exit code
		// remains to be propagated.
		os.Exit(cli.GetExitCode(err))
	}
}
