// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/keychain"
)

// loginCmd stores the model API key in the OS keychain.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the model API key in the OS keychain",
	Long: `The login command prompts for the API key of the model provider and stores it
securely in the OS keychain. The key can alternatively be supplied through the
SQLPILOT_API_KEY or OPENAI_API_KEY environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter model API key: ")
		key, _ := reader.ReadString('\n')
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("API key is required")
		}

		mgr, err := keychain.GetManager()
		if err != nil {
			return fmt.Errorf("keychain unavailable: %w", err)
		}
		if err := mgr.Set(keychain.KeyAPIKey, key); err != nil {
			return fmt.Errorf("store API key: %w", err)
		}

		pterm.Printf("✅ API key stored in the keychain.\n")
		return nil
	},
}

// logoutCmd removes stored credentials from the OS keychain.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials from the OS keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := keychain.GetManager()
		if err != nil {
			return fmt.Errorf("keychain unavailable: %w", err)
		}
		if err := mgr.Delete(keychain.KeyAPIKey); err != nil {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("No API key was stored."))
		}
		if err := mgr.Delete(keychain.KeyDBDSN); err != nil {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("No DSN was stored."))
		}
		pterm.Printf("✅ Stored credentials removed.\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
