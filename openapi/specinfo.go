package openapi

// BuildSpecInfo aggregates the six expected-coverage sets plus the
// response-expectation triples used by bug detection, from a fully
// parsed endpoint list.
func BuildSpecInfo(endpoints []Endpoint) SpecInfo {
	info := SpecInfo{
		Paths:                map[string]struct{}{},
		Operations:           map[OperationKey]struct{}{},
		Parameters:           map[string]struct{}{},
		StatusCodes:          map[string]struct{}{},
		ResponseFields:       map[string]struct{}{},
		InputContentTypes:    map[ContentTypeKey]struct{}{},
		ResponseExpectations: map[ExpectationKey]struct{}{},
	}

	for _, ep := range endpoints {
		info.Paths[ep.Path] = struct{}{}
		info.Operations[OperationKey{Method: ep.Method, Path: ep.Path}] = struct{}{}

		for _, p := range ep.Parameters() {
			info.Parameters[p.Name] = struct{}{}
		}
		if ep.RequestBody != nil {
			for name := range ep.RequestBody.Properties {
				info.Parameters[name] = struct{}{}
			}
			info.InputContentTypes[ContentTypeKey{Method: ep.Method, Path: ep.Path, ContentType: "application/json"}] = struct{}{}
		}

		for _, r := range ep.Responses {
			info.StatusCodes[r.Status] = struct{}{}
			for _, f := range r.TopLevelFields {
				info.ResponseFields[f] = struct{}{}
			}
			if r.HasContent {
				info.ResponseExpectations[ExpectationKey{Method: ep.Method, Path: ep.Path, Status: r.Status}] = struct{}{}
			}
		}
	}

	return info
}

// DynamicParamNames returns the lowercased union of every path
// parameter's name across all endpoints -- the tokens IDHarvester should
// match beyond its built-in defaults of id/key/token.
func DynamicParamNames(endpoints []Endpoint) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, ep := range endpoints {
		for _, p := range ep.PathParams {
			lower := toLower(p.Name)
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			names = append(names, lower)
		}
	}
	return names
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
