// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for SQLPilot. It implements
// subcommands for asking natural-language questions against a database, an
// interactive session, connection setup, and credential management using the
// Cobra CLI framework. Terminal output uses pterm for spinners, tables, and
// confirmation prompts.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/logging"
)

var (
	showVersion bool
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sqlpilot",
	Short: "SQLPilot answers natural-language questions with SQL",
	Long: `SQLPilot turns a natural-language question into a SQL statement, executes it
against your database, validates the result, and answers in plain language.
Statements that would modify data or schema require explicit approval before
they run. Faulty statements are diagnosed and corrected automatically within a
bounded retry budget.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("sqlpilot %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.PresentError("", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override configured log level (debug, info, warn, error)")
}
