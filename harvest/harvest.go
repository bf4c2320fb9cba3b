// Package harvest extracts candidate resource identifiers from a JSON
// response body, filtered by plausibility and key-name matching, so
// later requests can resolve path/header placeholders against real
// runtime state.
package harvest

import (
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

var baseTokens = []string{"id", "key", "token"}

// ExtractIDs walks body (a JSON document) looking for scalar values
// whose key name starts or ends with one of baseTokens ∪ paramNames
// (all lowercased), and whose value passes the plausibility filter.
// Malformed JSON returns a nil map silently -- this is the documented
// "treated as empty" disposition, not an error. Candidate tokens are
// tried longest-first so a specific token like "petid" claims a match
// before the generic "id" suffix does; a value is only ever credited
// to one bucket.
func ExtractIDs(body []byte, paramNames []string) map[string][]string {
	var doc any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil
	}

	tokens := make([]string, 0, len(baseTokens)+len(paramNames))
	tokens = append(tokens, baseTokens...)
	for _, p := range paramNames {
		tokens = append(tokens, strings.ToLower(p))
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return len(tokens[i]) > len(tokens[j])
	})

	found := map[string][]string{}
	seen := map[string]map[string]struct{}{}
	recursiveExtract(doc, tokens, found, seen)
	if len(found) == 0 {
		return nil
	}
	return found
}

func recursiveExtract(node any, tokens []string, found map[string][]string, seen map[string]map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			switch scalar := val.(type) {
			case map[string]any, []any:
				recursiveExtract(scalar, tokens, found, seen)
			default:
				considerCandidate(k, val, tokens, found, seen)
			}
		}
	case []any:
		for _, item := range v {
			recursiveExtract(item, tokens, found, seen)
		}
	}
}

func considerCandidate(key string, value any, tokens []string, found map[string][]string, seen map[string]map[string]struct{}) {
	str, ok := stringifyScalar(value)
	if !ok || !isValidID(str) {
		return
	}
	lowerKey := strings.ToLower(key)
	for _, tok := range tokens {
		if strings.HasPrefix(lowerKey, tok) || strings.HasSuffix(lowerKey, tok) {
			addValue(found, seen, tok, str)
			return
		}
	}
}

func addValue(found map[string][]string, seen map[string]map[string]struct{}, token, value string) {
	if seen[token] == nil {
		seen[token] = map[string]struct{}{}
	}
	if _, ok := seen[token][value]; ok {
		return
	}
	seen[token][value] = struct{}{}
	found[token] = append(found[token], value)
}

// stringifyScalar converts a JSON scalar leaf (string, number, bool) to
// its string form; nil and compound values are rejected.
func stringifyScalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// isValidID reports whether s could plausibly be a resource identifier:
// at most 30 characters, no whitespace, and every character alphanumeric
// or one of '-', '_'.
func isValidID(s string) bool {
	if s == "" || len(s) > 30 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
