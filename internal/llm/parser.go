package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moneytalks-bot/moneytalks/internal/model"
)

// parseClassification decodes a model response into a RawClassification,
// tolerating the wrappers models add despite instructions.
func parseClassification(content string) (*model.RawClassification, error) {
	clean := cleanModelJSON(content)
	if clean == "" {
		return nil, fmt.Errorf("empty model response")
	}

	var raw model.RawClassification
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}
	return &raw, nil
}

// cleanModelJSON strips markdown fences and surrounding prose, keeping
// the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// If the model added prose around the object, keep only the span
	// from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
