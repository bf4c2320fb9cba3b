// Package mutate produces variants of a request body -- shallow,
// single-field value mutation for exploration, and deep whole-sequence
// mutation once the engine has stagnated.
package mutate

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/genvalue"
	"github.com/antflydb/apiprowl/openapi"
)

// MutateRequest returns one variant per existing body field (that field
// replaced by MutateValue(original)), plus one variant per optional
// schema property not currently present (added with a fresh example).
// If req.Body is empty or rb is nil, returns nil.
func MutateRequest(req apiprowl.Request, rb *openapi.RequestBody, rng *rand.Rand) []apiprowl.Request {
	if len(req.Body) == 0 || rb == nil {
		return nil
	}

	var variants []apiprowl.Request

	for _, name := range sortedBodyKeys(req.Body) {
		variant := cloneRequest(req)
		variant.Body[name] = MutateValue(req.Body[name], rng)
		variants = append(variants, variant)
	}

	required := map[string]struct{}{}
	for _, r := range rb.Required {
		required[r] = struct{}{}
	}
	for _, name := range sortedPropertyKeys(rb.Properties) {
		if _, isRequired := required[name]; isRequired {
			continue
		}
		if _, present := req.Body[name]; present {
			continue
		}
		schema, _ := rb.Properties[name].(map[string]any)
		variant := cloneRequest(req)
		variant.Body[name] = genvalue.Example(schema, rng)
		variants = append(variants, variant)
	}

	return variants
}

// MutateValue returns a boundary/invalid variant of v, dispatched by its
// runtime type: integers pick from {0, -1, v+1, v-1, 999999}; floats
// from {0.0, -1.1, 2v, 99999.99}; strings from {"", v+"_mutated",
// triple-joined v, a random 50-char string}; booleans negate; lists
// concatenate with themselves; anything else is returned unchanged.
func MutateValue(v any, rng *rand.Rand) any {
	switch x := v.(type) {
	case int64:
		options := []int64{0, -1, x + 1, x - 1, 999999}
		return options[rng.Intn(len(options))]
	case float64:
		options := []float64{0.0, -1.1, 2 * x, 99999.99}
		return options[rng.Intn(len(options))]
	case string:
		options := []string{"", x + "_mutated", strings.Join([]string{x, x, x}, "\n"), RandomString(50, rng)}
		return options[rng.Intn(len(options))]
	case bool:
		return !x
	case []any:
		return append(append([]any{}, x...), x...)
	default:
		return v
	}
}

const randomStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString generates a random alphanumeric string of the given
// length using rng.
func RandomString(length int, rng *rand.Rand) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randomStringAlphabet[rng.Intn(len(randomStringAlphabet))]
	}
	return string(b)
}

func cloneRequest(req apiprowl.Request) apiprowl.Request {
	clone := req
	clone.Body = make(map[string]any, len(req.Body))
	for k, v := range req.Body {
		clone.Body[k] = v
	}
	return clone
}

func sortedBodyKeys(body map[string]any) []string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedPropertyKeys(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
