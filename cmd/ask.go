// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/logging"
)

var (
	askMaxRetries int
	askVerbose    bool
	askShowCache  bool
)

// askCmd runs a single question through the pipeline and exits.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a natural-language question against your database",
	Long: `The ask command translates a question into SQL, executes it, validates the
result, and prints a plain-language answer. Statements that would modify data
or schema stop for confirmation first.

Example:
  sqlpilot ask "How many customers signed up last month?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		ctx := cmd.Context()

		s, err := newSession(ctx, askVerbose)
		if err != nil {
			pterm.Println(logging.PresentError("could not start session", err))
			return err
		}
		defer s.close()

		started := time.Now()
		req, err := runToCompletion(ctx, s, question, askMaxRetries)
		if err != nil {
			pterm.Println(logging.PresentError("", err))
			return err
		}

		renderOutcome(req)
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("Took %s", time.Since(started).Round(time.Millisecond)))
		if askShowCache {
			pterm.Println()
			renderCacheStats(s.orch.CacheStats())
		}
		return nil
	},
}

func init() {
	askCmd.Flags().IntVar(&askMaxRetries, "max-retries", 0, "Correction budget for faulty statements (default from config)")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Enable debug logging")
	askCmd.Flags().BoolVar(&askShowCache, "cache-stats", false, "Print query cache statistics after the answer")
	rootCmd.AddCommand(askCmd)
}
