// Package openapi parses an OpenAPI 2.0 or 3.x document into the
// normalized Endpoint list and SpecInfo the rest of the fuzzer consumes.
// It hides the version skew between Swagger 2.0 and OpenAPI 3.x behind a
// single model.
package openapi

// Document is a raw, decoded OpenAPI/Swagger document, still containing
// unresolved $ref pointers. It is kept around only long enough for
// the $ref resolver and the endpoint extractors to walk it.
type Document struct {
	Raw     map[string]any
	Version string // "2.0" for Swagger, or the OpenAPI major version ("3")
}

// Parameter describes a single request parameter, normalized from either
// a v2 "parameters" entry or a v3 "parameters" entry. Body parameters are
// represented by RequestBody on Endpoint, not by a Parameter with
// In == "body" -- the v2 body parameter is folded into RequestBody at
// parse time so callers never have to special-case the version.
type Parameter struct {
	Name     string
	In       string // "path", "query", "header"
	Required bool
	Schema   map[string]any
}

// RequestBody is the normalized request body schema, present only when
// the endpoint declares one (v3 requestBody.content["application/json"]
// or a v2 "in: body" parameter).
type RequestBody struct {
	Properties map[string]any
	Required   []string
}

// ResponseSchema is one declared response: its status code, whether it
// promises a body (HasContent), and the resolved top-level property
// names of its schema, if any.
type ResponseSchema struct {
	Status         string
	HasContent     bool
	TopLevelFields []string
	ContentTypes   []string
}

// Endpoint is a single, fully normalized (path, method) operation.
// Once built by Parse, Endpoints are immutable.
type Endpoint struct {
	Path   string
	Method string

	PathParams   []Parameter
	QueryParams  []Parameter
	HeaderParams []Parameter

	RequestBody *RequestBody // nil if the operation takes no body

	Responses []ResponseSchema
}

// Parameters returns every parameter on the endpoint regardless of
// location, in path/query/header order.
func (e *Endpoint) Parameters() []Parameter {
	all := make([]Parameter, 0, len(e.PathParams)+len(e.QueryParams)+len(e.HeaderParams))
	all = append(all, e.PathParams...)
	all = append(all, e.QueryParams...)
	all = append(all, e.HeaderParams...)
	return all
}

// RequiredPathParams returns the subset of PathParams with Required set.
func (e *Endpoint) RequiredPathParams() []Parameter {
	return requiredOf(e.PathParams)
}

// RequiredHeaderParams returns the subset of HeaderParams with Required
// set.
func (e *Endpoint) RequiredHeaderParams() []Parameter {
	return requiredOf(e.HeaderParams)
}

func requiredOf(params []Parameter) []Parameter {
	out := make([]Parameter, 0, len(params))
	for _, p := range params {
		if p.Required {
			out = append(out, p)
		}
	}
	return out
}

// SpecInfo is the aggregate "expected" coverage universe used to score
// TCL: the six sets the spec promises somewhere, plus the declared
// response_expectations used by bug detection's empty-body check.
type SpecInfo struct {
	Paths             map[string]struct{}
	Operations        map[OperationKey]struct{}
	Parameters        map[string]struct{}
	StatusCodes       map[string]struct{}
	ResponseFields    map[string]struct{}
	InputContentTypes map[ContentTypeKey]struct{}

	// ResponseExpectations holds (method, path, status) triples whose
	// declared response has a schema or non-empty content -- used to
	// decide whether an empty body at that status is suspicious.
	ResponseExpectations map[ExpectationKey]struct{}
}

// OperationKey identifies a (method, templated path) pair.
type OperationKey struct {
	Method string
	Path   string
}

// ContentTypeKey identifies a (method, templated path, content-type)
// triple.
type ContentTypeKey struct {
	Method      string
	Path        string
	ContentType string
}

// ExpectationKey identifies a (method, templated path, status) triple.
type ExpectationKey struct {
	Method string
	Path   string
	Status string
}
