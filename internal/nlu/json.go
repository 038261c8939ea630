// Package nlu holds the oracle prompt templates and the tolerant JSON
// decoding used at every oracle boundary. Model output is never trusted:
// every response is schema-checked by its call site, and anything
// unparsable maps to domain.ErrOracleUnparsable so the caller can apply
// its documented fallback.
package nlu

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/safebites/menuquery/internal/domain"
)

// Decode parses a model response into v, tolerating the usual formatting
// noise: markdown code fences, a leading "json" language tag, and prose
// around a single top-level JSON object or array.
func Decode(raw string, v any) error {
	cleaned := stripEnvelope(raw)
	if cleaned == "" {
		return fmt.Errorf("empty response: %w", domain.ErrOracleUnparsable)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrOracleUnparsable)
	}
	return nil
}

// stripEnvelope removes code fences and surrounding prose, keeping the
// outermost JSON object or array.
func stripEnvelope(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 1 {
			s = strings.Join(lines[1:], "\n")
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "json"))
	}

	// Keep the outermost object/array when the model wrapped it in prose.
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
