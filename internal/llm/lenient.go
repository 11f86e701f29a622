package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSONObject pulls a single JSON object out of service output that may
// be wrapped in prose or markdown code fences. A response with no valid
// embedded object counts as a parse failure (retryable at the caller).
func ExtractJSONObject(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidate := []byte(text[start : end+1])
		if json.Valid(candidate) {
			return candidate, nil
		}
	}

	// Fall back to scanning code fences individually.
	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "json")
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && json.Valid([]byte(part)) {
				return []byte(part), nil
			}
		}
	}

	return nil, errors.New("no valid JSON object in response")
}
