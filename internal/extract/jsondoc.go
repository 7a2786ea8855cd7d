package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON reads a "content" field, or the contents of an array of such
// objects. Other shapes are returned as indented JSON.
func extractJSON(data []byte) (string, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: json: %v", ErrExtractionFailure, err)
	}

	switch v := parsed.(type) {
	case map[string]any:
		if content, ok := v["content"].(string); ok {
			return content, nil
		}
	case []any:
		var parts []string
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if content, ok := obj["content"].(string); ok && strings.TrimSpace(content) != "" {
				parts = append(parts, content)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), nil
		}
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: json: %v", ErrExtractionFailure, err)
	}
	return string(pretty), nil
}
