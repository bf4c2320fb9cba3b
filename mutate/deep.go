package mutate

import (
	"math"
	"math/rand"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/openapi"
)

// EndpointLookup resolves the owning endpoint for a request, the same
// way the Python source's find_endpoint_by_request does by matching
// method and templated path. The engine supplies this since only it
// knows the endpoint list.
type EndpointLookup func(req apiprowl.Request) (openapi.Endpoint, bool)

// DeepMutation rewrites every request in seq: if the owning endpoint has
// a JSON body schema, every optional property missing from the current
// body is added with a fuzz value and the body is replaced. Requests
// whose endpoint can't be found, or whose body schema is absent, pass
// through unchanged. Headers are never mutated.
func DeepMutation(seq []apiprowl.Request, lookup EndpointLookup, rng *rand.Rand) []apiprowl.Request {
	out := make([]apiprowl.Request, len(seq))
	for i, req := range seq {
		ep, ok := lookup(req)
		if !ok || ep.RequestBody == nil {
			out[i] = req
			continue
		}
		out[i] = deepMutateOne(req, ep.RequestBody, rng)
	}
	return out
}

func deepMutateOne(req apiprowl.Request, rb *openapi.RequestBody, rng *rand.Rand) apiprowl.Request {
	variant := cloneRequest(req)
	if variant.Body == nil {
		variant.Body = map[string]any{}
	}

	required := map[string]struct{}{}
	for _, r := range rb.Required {
		required[r] = struct{}{}
	}
	for _, name := range sortedPropertyKeys(rb.Properties) {
		if _, isRequired := required[name]; isRequired {
			continue
		}
		if _, present := variant.Body[name]; present {
			continue
		}
		schema, _ := rb.Properties[name].(map[string]any)
		variant.Body[name] = FuzzValue(schema, rng)
	}
	return variant
}

// FuzzValue generates a boundary/invalid value biased toward breaking
// naive validation, dispatched by schema "type": strings draw from
// {"", 1000-char string, an emoji string, a NUL byte, "null", "1234"};
// integers from {-1, 0, 1, 2^31-1, -2^31}; numbers from {-1.0, 0.0,
// 3.14159, +Inf, -Inf}; booleans from {true, false}; arrays/objects
// yield empty collections; anything else yields "fuzz".
func FuzzValue(schema map[string]any, rng *rand.Rand) any {
	t, _ := schema["type"].(string)
	switch t {
	case "string":
		options := []string{"", longString(1000), "🔥💥🧨", "\x00", "null", "1234"}
		return options[rng.Intn(len(options))]
	case "integer":
		options := []int64{-1, 0, 1, math.MaxInt32, math.MinInt32}
		return options[rng.Intn(len(options))]
	case "number":
		options := []float64{-1.0, 0.0, 3.14159, math.Inf(1), math.Inf(-1)}
		return options[rng.Intn(len(options))]
	case "boolean":
		options := []bool{true, false}
		return options[rng.Intn(len(options))]
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return "fuzz"
	}
}

func longString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
