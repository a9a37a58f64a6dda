// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"strings"
	"testing"
)

// The resolver errors guide the user to the subcommand that stores the
// missing credential; those subcommands must be named correctly.
func TestResolverErrorsNameRealCommands(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"dsn", ErrNoDSN, []string{"sqlpilot connect", EnvDBDSN}},
		{"api key", ErrNoAPIKey, []string{"sqlpilot login", EnvAPIKey}},
	}
	for _, tt := range tests {
		for _, want := range tt.want {
			if !strings.Contains(tt.err.Error(), want) {
				t.Errorf("%s error %q does not mention %q", tt.name, tt.err, want)
			}
		}
	}
}
