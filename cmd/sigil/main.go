package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sigil-audio/sigil/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// ExitErrors were already reported through the output formatter.
		// Anything else (flag errors, unknown subcommands) still needs a line.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
