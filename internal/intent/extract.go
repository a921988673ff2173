package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// The prompt forbids markdown fencing, but hosted models wrap output in
// ```json fences often enough that the cleaning step tolerates them anyway.

var errNoJSONObject = errors.New("no JSON object in model output")

// ExtractJSON strips markdown code fences and returns the first balanced
// {...} block from raw model output.
func ExtractJSON(raw string) (string, error) {
	s := stripFences(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag like "json" on the opening fence.
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[i:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// wireResult mirrors the JSON schema the prompt demands from the model.
type wireResult struct {
	Intent   string `json:"intent"`
	Entities struct {
		Restaurant *string `json:"restaurant"`
		Items      []struct {
			Name     string  `json:"name"`
			Quantity float64 `json:"quantity"`
		} `json:"items"`
		Location *string `json:"location"`
	} `json:"entities"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Response   string  `json:"response"`
}

// parseResult turns raw model output into a validated Result. Out-of-range
// confidence is clamped and unknown intent strings collapse to "unknown";
// a malformed payload is an error, never a guessed default.
func parseResult(raw, requestedLanguage string) (Result, error) {
	block, err := ExtractJSON(raw)
	if err != nil {
		return Result{}, err
	}

	var w wireResult
	if err := json.Unmarshal([]byte(block), &w); err != nil {
		return Result{}, fmt.Errorf("unmarshal model output: %w", err)
	}

	res := Result{
		Intent:     ParseIntent(w.Intent),
		Confidence: clamp01(w.Confidence),
		Language:   strings.TrimSpace(w.Language),
		Response:   strings.TrimSpace(w.Response),
	}
	if res.Language == "" {
		res.Language = requestedLanguage
	}
	if w.Entities.Restaurant != nil {
		res.Entities.Restaurant = strings.TrimSpace(*w.Entities.Restaurant)
	}
	if w.Entities.Location != nil {
		res.Entities.Location = strings.TrimSpace(*w.Entities.Location)
	}
	for _, it := range w.Entities.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		qty := int(it.Quantity)
		if qty < 1 {
			qty = 1
		}
		res.Entities.Items = append(res.Entities.Items, OrderItem{Name: name, Quantity: qty})
	}
	return res, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
