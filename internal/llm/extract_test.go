// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package llm

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"query": "SELECT 1"}`,
			want:  `{"query": "SELECT 1"}`,
		},
		{
			name:  "fenced with language tag",
			input: "```json\n{\"is_valid\": true}\n```",
			want:  `{"is_valid": true}`,
		},
		{
			name:  "fenced without tag",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "prose around object",
			input: "Here is my analysis:\n{\"root_cause\": \"typo\"}\nHope that helps!",
			want:  `{"root_cause": "typo"}`,
		},
		{
			name:  "nested braces",
			input: `{"a": {"b": 2}}`,
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:    "no object at all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
