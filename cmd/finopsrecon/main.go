package main

import (
	"fmt"
	"os"

	"finops-reconciliation-pipeline/cmd/finopsrecon/cmd"
	"finops-reconciliation-pipeline/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Set version information
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}
