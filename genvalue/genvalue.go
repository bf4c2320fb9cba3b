// Package genvalue synthesizes example values from a JSON Schema
// fragment, the same way request bodies, path parameters, and mutation
// fallbacks all need a "plausible value for this schema" primitive.
package genvalue

import (
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Example generates a value for schema. If schema carries an "example"
// field, it is returned verbatim. Otherwise dispatch is by "type":
// string/integer/number/boolean/array/object, each with its own
// generation rule; an unrecognized or missing type yields "fallback".
func Example(schema map[string]any, rng *rand.Rand) any {
	if schema == nil {
		return "fallback"
	}
	if ex, ok := schema["example"]; ok {
		return ex
	}

	switch t, _ := schema["type"].(string); t {
	case "string":
		return exampleString(schema, rng)
	case "integer":
		return exampleInteger(schema)
	case "number":
		return exampleNumber(schema)
	case "boolean":
		return true
	case "array":
		item, _ := schema["items"].(map[string]any)
		if item == nil {
			return []any{}
		}
		return []any{Example(item, rng)}
	case "object":
		return exampleObject(schema, rng)
	default:
		return "fallback"
	}
}

func exampleString(schema map[string]any, rng *rand.Rand) string {
	switch format, _ := schema["format"].(string); format {
	case "email":
		return "user@example.com"
	case "date":
		return "2025-01-01"
	case "date-time":
		return "2025-01-01T00:00:00Z"
	case "uuid":
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return "example-string"
		}
		return id.String()
	}
	if pattern, ok := schema["pattern"].(string); ok && pattern != "" {
		if s, ok := MatchingString(pattern); ok {
			return s
		}
	}
	return "example-string"
}

func exampleInteger(schema map[string]any) int64 {
	const (
		defaultMin = 0
		defaultMax = 9_999_999_999
	)
	min := int64(defaultMin)
	max := int64(defaultMax)
	if v, ok := numericField(schema, "minimum"); ok {
		min = int64(v)
	}
	if v, ok := numericField(schema, "maximum"); ok {
		max = int64(v)
	}
	return clampInt(123, min, max)
}

func exampleNumber(schema map[string]any) float64 {
	const (
		defaultMin = 0.0
		defaultMax = 9_999_999.99
	)
	min := defaultMin
	max := defaultMax
	if v, ok := numericField(schema, "minimum"); ok {
		min = v
	}
	if v, ok := numericField(schema, "maximum"); ok {
		max = v
	}
	clamped := clampFloat(123.45, min, max)
	return math.Round(clamped*100) / 100
}

func exampleObject(schema map[string]any, rng *rand.Rand) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	out := make(map[string]any, len(props))
	for name, sub := range props {
		subSchema, _ := sub.(map[string]any)
		v := Example(subSchema, rng)
		if v == nil {
			continue
		}
		out[name] = v
	}
	return out
}

func numericField(schema map[string]any, key string) (float64, bool) {
	switch v := schema[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func clampInt(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

var digitRepeatPattern = regexp.MustCompile(`^\^?\\d\{(\d+)(,(\d+)?)?\}\$?$`)

// MatchingString generates a string satisfying a limited subset of
// regex patterns: `^\d{m,n}$`, `^\d{n}$`, and simple digit-count
// patterns without anchors. Anything outside that subset reports ok =
// false so the caller can fall back to a generic example string.
func MatchingString(pattern string) (string, bool) {
	m := digitRepeatPattern.FindStringSubmatch(pattern)
	if m == nil {
		return "", false
	}
	minLen, _ := strconv.Atoi(m[1])
	maxLen := minLen
	if m[2] != "" && m[3] != "" {
		maxLen, _ = strconv.Atoi(m[3])
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	var b strings.Builder
	for i := 0; i < maxLen; i++ {
		b.WriteByte(byte('0' + (i % 10)))
	}
	return b.String(), true
}

// SortedExampleObjectKeys is a small helper exposed for deterministic
// test assertions over exampleObject's otherwise map-ordered output.
func SortedExampleObjectKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fallback is the literal sentinel value returned for an unrecognized
// schema type, exported so tests and callers can compare against it by
// name instead of a magic string.
const Fallback = "fallback"
