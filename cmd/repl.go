// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"os"
	"strings"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/logging"
)

var replVerbose bool

// replCmd starts an interactive question session. Besides questions it
// understands a few session commands: "cache" prints cache statistics,
// "clear" empties the cache, and "q" quits.
var replCmd = &cobra.Command{
	Use:     "repl",
	Aliases: []string{"chat"},
	Short:   "Start an interactive question session",
	Long: `The repl command opens an interactive session. Each line is treated as a
natural-language question and answered against the connected database.
Repeated questions are served from the in-memory query cache.

Session commands:
  cache   show query cache statistics
  clear   empty the query cache
  q       quit the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := newSession(ctx, replVerbose)
		if err != nil {
			pterm.Println(logging.PresentError("could not start session", err))
			return err
		}
		defer s.close()

		pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("SQLPilot interactive session"))
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("Connected to %s. Type a question, or 'q' to quit.", s.gw.Dialect().DisplayName()))
		pterm.Println()

		reader := bufio.NewReader(os.Stdin)
		for {
			pterm.Print(pterm.NewStyle(pterm.FgLightCyan).Sprint("? "))
			line, err := reader.ReadString('\n')
			if err != nil {
				// EOF ends the session cleanly.
				pterm.Println()
				return nil
			}
			line = strings.TrimSpace(line)

			switch strings.ToLower(line) {
			case "":
				continue
			case "q", "quit", "exit":
				pterm.Println("bye")
				return nil
			case "cache":
				renderCacheStats(s.orch.CacheStats())
				continue
			case "clear":
				s.cache.Clear()
				pterm.Info.Println("Query cache cleared.")
				continue
			}

			cursor.Hide()
			req, err := runToCompletion(ctx, s, line, 0)
			cursor.Show()
			if err != nil {
				pterm.Println(logging.PresentError("", err))
				continue
			}
			renderOutcome(req)
			pterm.Println()
		}
	},
}

func init() {
	replCmd.Flags().BoolVarP(&replVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(replCmd)
}
