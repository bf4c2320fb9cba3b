// Package reqbuild synthesizes a concrete request skeleton for an
// endpoint from its schema: URL with placeholders left intact, header
// values, and a body populated from required (or, for bodyless POSTs,
// one chosen optional) properties.
package reqbuild

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/genvalue"
	"github.com/antflydb/apiprowl/openapi"
	"github.com/oapi-codegen/runtime"
)

// Build synthesizes a Request skeleton for endpoint. Path placeholders
// in the URL are left untouched for depresolve.Resolve to fill in later.
func Build(endpoint openapi.Endpoint, rng *rand.Rand) apiprowl.Request {
	req := apiprowl.Request{
		Method:  endpoint.Method,
		URL:     endpoint.Path,
		Headers: map[string]string{"Content-Type": "application/json"},
	}

	for _, p := range endpoint.HeaderParams {
		req.Headers[p.Name] = stringify(genvalue.Example(p.Schema, rng))
	}

	for _, p := range endpoint.Parameters() {
		req.ParamSchemas = append(req.ParamSchemas, apiprowl.ParamRef{
			Name: p.Name, In: p.In, Schema: p.Schema,
		})
	}

	req.Body = buildBody(endpoint, rng)
	return req
}

func buildBody(endpoint openapi.Endpoint, rng *rand.Rand) map[string]any {
	rb := endpoint.RequestBody
	if rb == nil {
		return nil
	}

	body := map[string]any{}
	for _, name := range rb.Required {
		schema, _ := rb.Properties[name].(map[string]any)
		body[name] = genvalue.Example(schema, rng)
	}

	if len(body) == 0 && endpoint.Method == "POST" {
		if name, schema, ok := pickOptionalField(rb, rng); ok {
			body[name] = genvalue.Example(schema, rng)
		}
	}

	if len(body) == 0 {
		return nil
	}
	return body
}

// pickOptionalField chooses one non-readOnly optional property to
// populate when a POST endpoint declares a body schema with no required
// fields at all. Properties carrying an explicit example are preferred
// over ones without; within that preference tier the choice is made
// uniformly at random from rng, with sorted property-name order used
// only to make the candidate pool's iteration, not the pick itself,
// deterministic.
func pickOptionalField(rb *openapi.RequestBody, rng *rand.Rand) (string, map[string]any, bool) {
	required := map[string]struct{}{}
	for _, r := range rb.Required {
		required[r] = struct{}{}
	}

	names := make([]string, 0, len(rb.Properties))
	for name := range rb.Properties {
		if _, isRequired := required[name]; isRequired {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var withExample, withoutExample []string
	schemas := map[string]map[string]any{}
	for _, name := range names {
		schema, _ := rb.Properties[name].(map[string]any)
		if readOnly, _ := schema["readOnly"].(bool); readOnly {
			continue
		}
		schemas[name] = schema
		if _, hasExample := schema["example"]; hasExample {
			withExample = append(withExample, name)
		} else {
			withoutExample = append(withoutExample, name)
		}
	}

	candidates := withExample
	if len(candidates) == 0 {
		candidates = withoutExample
	}
	if len(candidates) == 0 {
		return "", nil, false
	}
	name := candidates[rng.Intn(len(candidates))]
	return name, schemas[name], true
}

// stringify renders a generated example value as a header string using
// the same "simple" style serialization an OpenAPI-generated client
// would apply to a header parameter (scalars pass through unprefixed,
// arrays join on commas). Falls back to fmt.Sprint if the runtime
// encoder rejects the value's shape.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := runtime.StyleParamWithLocation("simple", false, "", runtime.ParamLocationHeader, v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return encoded
}
