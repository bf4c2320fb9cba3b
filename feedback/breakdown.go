package feedback

import "github.com/antflydb/apiprowl/openapi"

// Breakdown is the structured, non-printing equivalent of the debug TCL
// breakdown helper: one ratio per dimension plus the summed score, for
// callers (CLI output, structured logs) that want the per-dimension
// detail instead of just the scalar TCLScore.
type Breakdown struct {
	Paths             float64
	Operations        float64
	Parameters        float64
	StatusCodes       float64
	ResponseFields    float64
	InputContentTypes float64
	Total             float64
}

// BuildBreakdown computes the same six ratios TCLScore sums, returning
// them individually alongside the total.
func BuildBreakdown(cov SequenceCoverage, expected openapi.SpecInfo) Breakdown {
	b := Breakdown{
		Paths:             ratioPaths(cov.Paths, expected.Paths),
		Operations:        ratioOperations(cov.Operations, expected.Operations),
		Parameters:        ratio(cov.Parameters, expected.Parameters),
		StatusCodes:       ratio(cov.StatusCodes, expected.StatusCodes),
		ResponseFields:    ratio(cov.ResponseFields, expected.ResponseFields),
		InputContentTypes: ratioContentTypes(cov.InputContentTypes, expected.InputContentTypes),
	}
	b.Total = b.Paths + b.Operations + b.Parameters + b.StatusCodes + b.ResponseFields + b.InputContentTypes
	return b
}
