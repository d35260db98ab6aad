// Package jsonutil recovers JSON payloads from model replies.
//
// Models asked for structured output sometimes wrap the payload in prose
// or markdown fences. This package pulls the object back out so callers
// can unmarshal it.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject locates a JSON object inside reply text and unmarshals it
// into T. Handles pure JSON, fenced code blocks, and objects embedded in
// surrounding prose. Arrays at the top level are not supported.
func ExtractObject[T any](reply string) (T, error) {
	var out T
	raw, err := ExtractRaw(reply)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return out, nil
}

// ExtractRaw returns the raw JSON object text found in a reply.
func ExtractRaw(reply string) (string, error) {
	reply = stripFences(reply)

	if json.Valid([]byte(reply)) {
		return reply, nil
	}

	// Brace matching is simple but covers what models actually emit.
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start != -1 && end > start {
		candidate := reply[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	preview := reply
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON object in reply: %q", preview)
}

func stripFences(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}
