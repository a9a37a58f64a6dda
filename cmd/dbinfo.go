// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/config"
	"sqlpilot/cli/internal/gateway"
	"sqlpilot/cli/internal/logging"
)

// dbinfoCmd shows the configured database target and its schema summary, the
// same summary that is fed to the planner.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the configured database and its schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		d, dsn, err := resolveTarget(cfg)
		if err != nil {
			return err
		}

		gw, err := gateway.Open(ctx, d, dsn)
		if err != nil {
			pterm.Println(logging.PresentError("could not connect", err))
			return err
		}
		defer gw.Close()

		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Dialect: ") +
			pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(d.DisplayName()))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Target:  ") +
			pterm.NewStyle(pterm.FgLightBlue).Sprint(logging.Mask(dsn)))
		pterm.Println()

		schema, err := gw.Schema(ctx)
		if err != nil {
			pterm.Println(logging.PresentError("schema introspection failed", err))
			return err
		}
		if schema == "" {
			pterm.Info.Println("The database has no tables.")
			return nil
		}
		pterm.Println(schema)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
