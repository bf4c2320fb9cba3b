package openapi

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonschema"
)

// BodyValidationResult reports whether a synthesized request body
// conforms to an endpoint's declared body schema.
type BodyValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateBody compiles the endpoint's request body schema and checks
// body against it. This exists to catch a generator bug (a malformed
// genvalue example, a required field left unset) as a visible failure
// instead of letting it surface downstream as a silent 400 from the
// target. An endpoint with no declared body schema always validates.
// Ported from antfly/oapi/validate.go's DocumentSchema.Validate.
func (e *Endpoint) ValidateBody(body map[string]any) (*BodyValidationResult, error) {
	if e.RequestBody == nil || len(e.RequestBody.Properties) == 0 {
		return &BodyValidationResult{Valid: true}, nil
	}

	schema := map[string]any{
		"type":       "object",
		"properties": e.RequestBody.Properties,
	}
	if len(e.RequestBody.Required) > 0 {
		schema["required"] = e.RequestBody.Required
	}

	compiler := jsonschema.NewCompiler()
	compiler.WithDecoderJSON(sonic.Unmarshal)
	compiler.WithEncoderJSON(sonic.Marshal)

	schemaBytes, err := sonic.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshalling body schema: %w", err)
	}
	compiled, err := compiler.Compile(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("compiling body schema: %w", err)
	}

	result := compiled.ValidateMap(body)
	out := &BodyValidationResult{Valid: result.IsValid()}
	if !out.Valid {
		out.Errors = make([]string, 0, len(result.Errors))
		for field, fieldErr := range result.Errors {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", field, fieldErr.Message))
		}
	}
	return out, nil
}
