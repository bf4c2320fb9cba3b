// Package depresolve substitutes `{name}` placeholders in a request's
// URL and header values with values harvested from live traffic,
// falling back to a schema-derived example when nothing has been seen
// yet for that name.
package depresolve

import (
	"fmt"
	"math/rand"
	"regexp"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/genvalue"
	"github.com/oapi-codegen/runtime"
)

var placeholderPattern = regexp.MustCompile(`\{(.*?)\}`)

// Resolve returns a copy of req with every `{name}` placeholder in URL,
// and every header value that is exactly `{name}`, replaced. A
// placeholder resolves against table using the shared prefix-or-suffix
// matching rule (apiprowl.DynamicIDTable.MatchingKey); on a miss it falls
// back to a schema-derived example from req.ParamSchemas, or a generic
// string example if no schema is known for that name.
func Resolve(req apiprowl.Request, table *apiprowl.DynamicIDTable, rng *rand.Rand) apiprowl.Request {
	out := req
	out.Headers = make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		out.Headers[k] = v
	}

	out.URL = placeholderPattern.ReplaceAllStringFunc(req.URL, func(match string) string {
		name := match[1 : len(match)-1]
		return resolveValue(name, req, table, rng)
	})

	for k, v := range out.Headers {
		if len(v) >= 2 && v[0] == '{' && v[len(v)-1] == '}' {
			name := v[1 : len(v)-1]
			out.Headers[k] = resolveValue(name, req, table, rng)
		}
	}

	return out
}

func resolveValue(name string, req apiprowl.Request, table *apiprowl.DynamicIDTable, rng *rand.Rand) string {
	if key, ok := table.MatchingKey(name); ok {
		values := table.Values(key)
		if len(values) > 0 {
			return values[rng.Intn(len(values))]
		}
	}
	if schema := paramSchema(req, name); schema != nil {
		return stringify(genvalue.Example(schema, rng))
	}
	return stringify(genvalue.Example(map[string]any{"type": "string"}, rng))
}

func paramSchema(req apiprowl.Request, name string) map[string]any {
	for _, p := range req.ParamSchemas {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// stringify renders a resolved value for substitution into a URL path
// segment using "simple" path-style serialization (the same rule an
// OpenAPI-generated client applies to an unexploded path parameter).
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := runtime.StyleParamWithLocation("simple", false, "", runtime.ParamLocationPath, v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return encoded
}
