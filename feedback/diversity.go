package feedback

import (
	"sort"
	"strconv"
	"strings"

	"github.com/antflydb/apiprowl"
	"github.com/bytedance/sonic"
)

// Diversity parses resp's body as JSON only when its Content-Type header
// contains "application/json" and the body is non-blank; it flattens
// the result into dot-path keys and returns how many of those keys are
// new relative to seenFields, along with the full current-response key
// set (not the union) so the caller can merge it into seenFields itself.
func Diversity(resp apiprowl.Response, seenFields map[string]struct{}) (int, map[string]struct{}) {
	ctype := resp.Headers["Content-Type"]
	if !strings.Contains(ctype, "application/json") || strings.TrimSpace(resp.Body) == "" {
		return 0, map[string]struct{}{}
	}

	var doc any
	if err := sonic.Unmarshal([]byte(resp.Body), &doc); err != nil {
		return 0, map[string]struct{}{}
	}

	fields := Flatten(doc, "")
	current := make(map[string]struct{}, len(fields))
	newCount := 0
	for _, f := range fields {
		current[f] = struct{}{}
		if _, ok := seenFields[f]; !ok {
			newCount++
		}
	}
	return newCount, current
}

// Flatten turns a decoded JSON value into a sorted list of dot-path leaf
// keys: object keys join with ".", array elements are indexed
// numerically ("items.0", "items.1", ...), matching the same
// parent.child / parent.index convention used throughout the pipeline.
func Flatten(data any, parentKey string) []string {
	var out []string
	flattenInto(data, parentKey, &out)
	sort.Strings(out)
	return out
}

func flattenInto(data any, parentKey string, out *[]string) {
	switch v := data.(type) {
	case map[string]any:
		for k, val := range v {
			key := k
			if parentKey != "" {
				key = parentKey + "." + k
			}
			flattenInto(val, key, out)
		}
	case []any:
		for i, val := range v {
			key := strconv.Itoa(i)
			if parentKey != "" {
				key = parentKey + "." + key
			}
			flattenInto(val, key, out)
		}
	default:
		if parentKey != "" {
			*out = append(*out, parentKey)
		}
	}
}

func parseJSONObject(body string) (map[string]any, bool) {
	var m map[string]any
	if err := sonic.Unmarshal([]byte(body), &m); err != nil {
		return nil, false
	}
	return m, true
}
