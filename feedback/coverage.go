// Package feedback computes the signals that drive selection: per-
// sequence coverage (TCL) against the declared spec, and response-field
// diversity against everything seen so far.
package feedback

import (
	"strconv"
	"strings"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/openapi"
)

// SequenceCoverage is the six-dimension coverage a single request/
// response sequence achieved.
type SequenceCoverage struct {
	Paths             map[string]struct{}
	Operations        map[openapi.OperationKey]struct{}
	Parameters        map[string]struct{}
	StatusCodes       map[string]struct{}
	ResponseFields    map[string]struct{}
	InputContentTypes map[openapi.ContentTypeKey]struct{}
}

// ExtractSequenceCoverage computes the six coverage sets across the
// given requests and the responses they produced. len(requests) must
// equal len(responses).
func ExtractSequenceCoverage(requests []apiprowl.Request, responses []apiprowl.Response) SequenceCoverage {
	cov := SequenceCoverage{
		Paths:             map[string]struct{}{},
		Operations:        map[openapi.OperationKey]struct{}{},
		Parameters:        map[string]struct{}{},
		StatusCodes:       map[string]struct{}{},
		ResponseFields:    map[string]struct{}{},
		InputContentTypes: map[openapi.ContentTypeKey]struct{}{},
	}

	for i, req := range requests {
		path := stripQuery(req.URL)
		cov.Paths[path] = struct{}{}
		cov.Operations[openapi.OperationKey{Method: req.Method, Path: path}] = struct{}{}

		for k := range req.Headers {
			cov.Parameters[k] = struct{}{}
		}
		for k := range req.Body {
			cov.Parameters[k] = struct{}{}
		}

		if ctype, ok := req.Headers["Content-Type"]; ok && len(req.Body) > 0 {
			cov.InputContentTypes[openapi.ContentTypeKey{Method: req.Method, Path: path, ContentType: ctype}] = struct{}{}
		}

		if i < len(responses) {
			resp := responses[i]
			cov.StatusCodes[strconv.Itoa(resp.Status)] = struct{}{}
			if fields, ok := topLevelJSONFields(resp); ok {
				for _, f := range fields {
					cov.ResponseFields[f] = struct{}{}
				}
			}
		}
	}

	return cov
}

// NewCoverage returns an empty SequenceCoverage with every set
// initialized, ready to be grown via MergeInto.
func NewCoverage() SequenceCoverage {
	return SequenceCoverage{
		Paths:             map[string]struct{}{},
		Operations:        map[openapi.OperationKey]struct{}{},
		Parameters:        map[string]struct{}{},
		StatusCodes:       map[string]struct{}{},
		ResponseFields:    map[string]struct{}{},
		InputContentTypes: map[openapi.ContentTypeKey]struct{}{},
	}
}

// MergeInto grows cumulative with every entry of seq -- a monotonic
// union, never a removal, matching CumulativeCoverage's invariant that
// it only ever grows across iterations.
func MergeInto(cumulative SequenceCoverage, seq SequenceCoverage) {
	for k := range seq.Paths {
		cumulative.Paths[k] = struct{}{}
	}
	for k := range seq.Operations {
		cumulative.Operations[k] = struct{}{}
	}
	for k := range seq.Parameters {
		cumulative.Parameters[k] = struct{}{}
	}
	for k := range seq.StatusCodes {
		cumulative.StatusCodes[k] = struct{}{}
	}
	for k := range seq.ResponseFields {
		cumulative.ResponseFields[k] = struct{}{}
	}
	for k := range seq.InputContentTypes {
		cumulative.InputContentTypes[k] = struct{}{}
	}
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func topLevelJSONFields(resp apiprowl.Response) ([]string, bool) {
	m, ok := parseJSONObject(resp.Body)
	if !ok {
		return nil, false
	}
	fields := make([]string, 0, len(m))
	for k := range m {
		fields = append(fields, k)
	}
	return fields, true
}

// TCLScore sums, over the six dimensions with a non-empty expected set,
// |matched|/|expected|. paths and operations use the templated-path
// matcher; the other four use exact set intersection. Result ∈ [0, 6].
func TCLScore(cov SequenceCoverage, expected openapi.SpecInfo) float64 {
	var score float64
	score += ratioPaths(cov.Paths, expected.Paths)
	score += ratioOperations(cov.Operations, expected.Operations)
	score += ratio(cov.Parameters, expected.Parameters)
	score += ratio(cov.StatusCodes, expected.StatusCodes)
	score += ratio(cov.ResponseFields, expected.ResponseFields)
	score += ratioContentTypes(cov.InputContentTypes, expected.InputContentTypes)
	return score
}

func ratio(covered, expected map[string]struct{}) float64 {
	if len(expected) == 0 {
		return 0
	}
	matched := 0
	for k := range expected {
		if _, ok := covered[k]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(expected))
}

func ratioContentTypes(covered map[openapi.ContentTypeKey]struct{}, expected map[openapi.ContentTypeKey]struct{}) float64 {
	if len(expected) == 0 {
		return 0
	}
	matched := 0
	for k := range expected {
		if _, ok := covered[k]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(expected))
}

// ratioPaths computes |matched|/|expected| where a covered concrete path
// matches an expected templated path per apiprowl.MatchPath rather than
// exact string equality.
func ratioPaths(covered map[string]struct{}, expected map[string]struct{}) float64 {
	if len(expected) == 0 {
		return 0
	}
	matched := 0
	for template := range expected {
		for c := range covered {
			if apiprowl.MatchPath(c, template) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(expected))
}

// ratioOperations is ratioPaths extended with an exact method match.
func ratioOperations(covered map[openapi.OperationKey]struct{}, expected map[openapi.OperationKey]struct{}) float64 {
	if len(expected) == 0 {
		return 0
	}
	matched := 0
	for template := range expected {
		for c := range covered {
			if c.Method == template.Method && apiprowl.MatchPath(c.Path, template.Path) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(expected))
}
