// Command pbicli is a command-line and terminal-UI client for the
// Power BI REST API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rshade/pbicli/internal/cli"
	"github.com/rshade/pbicli/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the failure onto a process exit
// code. Authentication failures and cache misses carry dedicated codes via
// cli.ExitError so scripts can branch on the status.
func run() int {
	rootCmd := cli.NewRootCmd(version.GetVersion())
	if err := rootCmd.Execute(); err != nil {
		return extractExitCode(err)
	}
	return 0
}

// extractExitCode returns the exit code for a command error: the embedded
// code when the error is (or wraps) a cli.ExitError, otherwise the generic
// failure code. Cobra already printed the error; only print it ourselves
// when the ExitError was constructed without a message.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Reason == "" && exitErr.Err == nil {
			fmt.Fprintf(os.Stderr, "pbicli: exit status %d\n", exitErr.ExitCode)
		}
		return exitErr.ExitCode
	}

	return cli.ExitCodeError
}
