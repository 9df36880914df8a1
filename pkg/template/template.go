// Package template renders {{dot.path}} placeholders against run context,
// used by messaging and webhook actions for dynamic configuration.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pulsehq/pulse/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// Render substitutes every {{dot.path}} placeholder with the value resolved
// from the run context. A path that does not resolve leaves the placeholder
// literal in the output; rendering never fails.
func Render(input string, runCtx *models.RunContext) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := runCtx.Resolve(path)
		if !ok || value == nil {
			return match
		}

		return stringify(value)
	})
}

// RenderMap renders every string value in a map, recursing into nested maps
// and slices. Non-string values pass through untouched.
func RenderMap(input map[string]any, runCtx *models.RunContext) map[string]any {
	if input == nil {
		return nil
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = renderValue(value, runCtx)
	}

	return out
}

func renderValue(value any, runCtx *models.RunContext) any {
	switch v := value.(type) {
	case string:
		return Render(v, runCtx)
	case map[string]any:
		return RenderMap(v, runCtx)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = renderValue(item, runCtx)
		}

		return out
	default:
		return value
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Whole floats render without a trailing .0 so interpolated IDs
		// and counts read naturally.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
