package main

import (
	"fmt"
	"os"

	"tmexport.in/cli/internal/core/domain"
	"tmexport.in/cli/internal/interfaces/cli"
)

// Exit codes: 0 success, 2 configuration error, 1 anything else. Scripts
// driving this binary can tell an operator mistake from a run failure.
const (
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	rootCmd := cli.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if domain.IsConfigError(err) {
			os.Exit(exitConfig)
		}
		os.Exit(exitFailure)
	}
}
