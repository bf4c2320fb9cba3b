package openapi

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Validate performs a structural sanity check of raw spec bytes using
// kin-openapi's loader -- malformed documents (missing required fields,
// invalid types) are rejected here, before the hand-written resolver in
// this package ever touches them. This is a secondary check only: the
// actual $ref resolution used by the rest of the fuzzer is ResolveSchema,
// not kin-openapi's loader, because the loader shares its visited-refs
// state across an entire walk rather than branching it per descent.
func Validate(raw []byte) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return fmt.Errorf("openapi: loading document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("openapi: validating document: %w", err)
	}
	return nil
}
