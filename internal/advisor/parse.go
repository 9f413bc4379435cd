package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spoilsense/spoilsense/internal/pantry"
)

// parseRecipes parses a model response into recipes. Model output is
// untrusted: markdown fences are stripped and only the outermost JSON
// array is decoded. Recipes without a name are dropped.
func parseRecipes(text string) ([]pantry.Recipe, error) {
	text = extractJSON(text, "[", "]")
	if text == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var recipes []pantry.Recipe
	if err := json.Unmarshal([]byte(text), &recipes); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	kept := make([]pantry.Recipe, 0, len(recipes))
	for _, r := range recipes {
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// parseShelfLives parses a model response into a name -> days map.
func parseShelfLives(text string) (map[string]float64, error) {
	text = extractJSON(text, "{", "}")
	if text == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var days map[string]float64
	if err := json.Unmarshal([]byte(text), &days); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	return days, nil
}

// extractJSON strips markdown fences and returns the outermost
// opening..closing span, or "" when no such span exists.
func extractJSON(text, opening, closing string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, opening)
	end := strings.LastIndex(text, closing)
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
