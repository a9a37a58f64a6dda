// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package llm

import (
	"fmt"
	"strings"
)

// extractJSON pulls the first JSON object out of a model reply. Models often
// wrap objects in code fences or prose; everything outside the outermost
// braces is discarded.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if fenced := stripFence(s); fenced != "" {
		s = fenced
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return s[start : end+1], nil
}

// stripFence removes a ```json ... ``` (or plain ```) wrapper if present.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	body := strings.TrimPrefix(s, "```")
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:] // drop the language tag line
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
