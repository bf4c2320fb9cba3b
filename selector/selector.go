// Package selector chooses a base test from the corpus and a compatible
// next endpoint to extend it with, using an ε-greedy weighted policy.
package selector

import (
	"errors"
	"math/rand"
	"sort"
	"strings"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/openapi"
)

const (
	// MaxSequenceLength bounds how long a corpus entry may grow before
	// it is no longer eligible to be selected as a base test.
	MaxSequenceLength = 8

	// Alpha, Beta, Gamma are the scoring weights for
	// tcl*Alpha + diversity*Beta - length*Gamma (spec.md §4.7, §9 open
	// question #2: adopted as canonical).
	Alpha = 1.0
	Beta  = 1.0
	Gamma = 0.3

	// ScoreFloor is the minimum weight any viable entry can have, so a
	// zero or negative raw score never makes an entry unreachable.
	ScoreFloor = 0.01

	// EpsilonUniform is the probability SelectTest ignores the weighted
	// distribution entirely and picks uniformly among viable entries.
	EpsilonUniform = 0.2

	// FallbackSeedCount is k in SelectFallbackSeeds.
	FallbackSeedCount = 3
)

// ErrNoViableTests is returned when every corpus entry's sequence length
// reaches or exceeds MaxSequenceLength.
var ErrNoViableTests = errors.New("selector: no viable tests under MAX_SEQUENCE_LENGTH")

// ErrEmptyCorpus is returned when the corpus has no entries at all.
var ErrEmptyCorpus = errors.New("selector: corpus is empty")

// ErrNoCompatibleEndpoint is returned when no candidate endpoint's
// required path/header parameters can be resolved from the dynamic-ID
// table.
var ErrNoCompatibleEndpoint = errors.New("selector: no compatible endpoint")

// SelectTest picks a base test entry from corpus. With probability
// EpsilonUniform it returns a uniform pick among entries shorter than
// MaxSequenceLength; otherwise it samples from a distribution weighted
// by Alpha*tcl + Beta*diversity - Gamma*length, floored at ScoreFloor.
func SelectTest(corpus apiprowl.Corpus, rng *rand.Rand) (apiprowl.TestEntry, error) {
	if len(corpus) == 0 {
		return apiprowl.TestEntry{}, ErrEmptyCorpus
	}
	viable := corpus.Viable(MaxSequenceLength)
	if len(viable) == 0 {
		return apiprowl.TestEntry{}, ErrNoViableTests
	}

	if rng.Float64() < EpsilonUniform {
		return viable[rng.Intn(len(viable))], nil
	}

	weights := make([]float64, len(viable))
	var total float64
	for i, e := range viable {
		w := Alpha*e.TCL + Beta*e.Diversity - Gamma*float64(len(e.Sequence))
		if w < ScoreFloor {
			w = ScoreFloor
		}
		weights[i] = w
		total += w
	}

	pick := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if pick < cumulative {
			return viable[i], nil
		}
	}
	return viable[len(viable)-1], nil
}

// ChooseCompatibleEndpoint selects the next endpoint to extend base
// with: compatible means its (method, path) isn't already used in
// base's sequence, and every required path/header parameter can be
// resolved from table. Among compatible candidates the highest-scoring
// one (per ScoreCandidate against the endpoint matching base's last
// request) is returned; ties favor the first in enumeration order.
func ChooseCompatibleEndpoint(base apiprowl.TestEntry, endpoints []openapi.Endpoint, table *apiprowl.DynamicIDTable) (openapi.Endpoint, error) {
	used := usedEndpoints(base, endpoints)
	baseEndpoint := lastEndpoint(base, endpoints)

	var best openapi.Endpoint
	bestScore := -1
	found := false
	for _, candidate := range endpoints {
		key := openapi.OperationKey{Method: candidate.Method, Path: candidate.Path}
		if _, isUsed := used[key]; isUsed {
			continue
		}
		if !allParamsResolvable(candidate, table) {
			continue
		}
		score := ScoreCandidate(baseEndpoint, candidate)
		if !found || score > bestScore {
			best, bestScore, found = candidate, score, true
		}
	}
	if !found {
		return openapi.Endpoint{}, ErrNoCompatibleEndpoint
	}
	return best, nil
}

func usedEndpoints(base apiprowl.TestEntry, endpoints []openapi.Endpoint) map[openapi.OperationKey]struct{} {
	used := map[openapi.OperationKey]struct{}{}
	for _, req := range base.Sequence {
		if ep, ok := FindEndpointByRequest(req, endpoints); ok {
			used[openapi.OperationKey{Method: ep.Method, Path: ep.Path}] = struct{}{}
		}
	}
	return used
}

func lastEndpoint(base apiprowl.TestEntry, endpoints []openapi.Endpoint) openapi.Endpoint {
	if len(base.Sequence) == 0 {
		return openapi.Endpoint{}
	}
	last := base.Sequence[len(base.Sequence)-1]
	if ep, ok := FindEndpointByRequest(last, endpoints); ok {
		return ep
	}
	return openapi.Endpoint{}
}

func allParamsResolvable(ep openapi.Endpoint, table *apiprowl.DynamicIDTable) bool {
	for _, p := range ep.RequiredPathParams() {
		if !table.Has(p.Name) {
			return false
		}
	}
	for _, p := range ep.RequiredHeaderParams() {
		if !table.Has(p.Name) {
			return false
		}
	}
	return true
}

// ScoreCandidate scores candidate against baseEndpoint: +3 if the paths
// are identical, else +2 if candidate's path is a sub-path of base's,
// else +1 if they share their first path segment (these three tiers are
// mutually exclusive); independently, +1 if the methods differ.
func ScoreCandidate(base, candidate openapi.Endpoint) int {
	score := 0
	switch {
	case candidate.Path == base.Path:
		score += 3
	case strings.HasPrefix(candidate.Path, base.Path+"/"):
		score += 2
	case firstSegment(candidate.Path) == firstSegment(base.Path):
		score += 1
	}
	if candidate.Method != base.Method {
		score++
	}
	return score
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// FindEndpointByRequest locates the endpoint matching req's method and
// templated path among endpoints, using apiprowl.MatchPath.
func FindEndpointByRequest(req apiprowl.Request, endpoints []openapi.Endpoint) (openapi.Endpoint, bool) {
	concrete := req.URL
	if i := strings.IndexByte(concrete, '?'); i >= 0 {
		concrete = concrete[:i]
	}
	for _, ep := range endpoints {
		if ep.Method == req.Method && apiprowl.MatchPath(concrete, ep.Path) {
			return ep, true
		}
	}
	return openapi.Endpoint{}, false
}

// IsSeedEndpoint reports whether ep can be called without dynamic
// state: no required path parameters, and no required header other than
// content-type/accept.
func IsSeedEndpoint(ep openapi.Endpoint) bool {
	if len(ep.RequiredPathParams()) > 0 {
		return false
	}
	for _, p := range ep.RequiredHeaderParams() {
		lower := strings.ToLower(p.Name)
		if lower != "content-type" && lower != "accept" {
			return false
		}
	}
	return true
}

// SelectFallbackSeeds returns the k endpoints with the fewest required
// path parameters, used when no endpoint qualifies as a seed outright.
func SelectFallbackSeeds(endpoints []openapi.Endpoint, k int) []openapi.Endpoint {
	sorted := make([]openapi.Endpoint, len(endpoints))
	copy(sorted, endpoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].RequiredPathParams()) < len(sorted[j].RequiredPathParams())
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
