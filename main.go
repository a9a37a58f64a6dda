// Package main is the entry point for the SQLPilot CLI application.
// It answers natural-language questions by planning, executing, and
// validating SQL against the configured database.
package main

import (
	"sqlpilot/cli/cmd"
)

// main initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
