// Package engine implements the top-level fuzzing control loop: corpus
// management, the dynamic-ID table, cumulative coverage, and the
// one-way exploration/mutation state machine described in spec.md §4.8.
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/authn"
	"github.com/antflydb/apiprowl/depresolve"
	"github.com/antflydb/apiprowl/feedback"
	"github.com/antflydb/apiprowl/harvest"
	"github.com/antflydb/apiprowl/metrics"
	"github.com/antflydb/apiprowl/mutate"
	"github.com/antflydb/apiprowl/openapi"
	"github.com/antflydb/apiprowl/reportsink"
	"github.com/antflydb/apiprowl/reqbuild"
	"github.com/antflydb/apiprowl/selector"
	"github.com/antflydb/apiprowl/transport"
	"go.uber.org/zap"
)

const (
	// StagnationWindow is the stagnation counter threshold that triggers
	// the one-way EXPLORATION -> MUTATION transition.
	StagnationWindow = 25.0

	// NoCompatibleThreshold is how many consecutive
	// no-compatible-endpoint misses EXPLORATION tolerates before
	// falling back to picking a uniformly random unused endpoint.
	NoCompatibleThreshold = 5

	// MutationProbability is the chance EXPLORATION replaces a freshly
	// built request with a random shallow mutant of itself.
	MutationProbability = 0.4
)

// Engine owns every piece of mutable fuzzing state: the corpus, the
// dynamic-ID table, cumulative coverage, seen fields, seen signatures,
// and the exploration/mutation mode. It is not safe for concurrent use
// by more than one goroutine -- the control loop is single-threaded by
// design (spec.md §5).
type Engine struct {
	Endpoints []openapi.Endpoint
	SpecInfo  openapi.SpecInfo
	BaseURL   string

	Sender   transport.Sender
	Auth     authn.Provider
	BugSink  *reportsink.BugSink
	IterSink *reportsink.IterationSink
	Metrics  *metrics.Collectors
	Logger   *zap.Logger
	RNG      *rand.Rand

	corpus             apiprowl.Corpus
	table              *apiprowl.DynamicIDTable
	cumulativeCoverage feedback.SequenceCoverage
	seenFields         map[string]struct{}
	seenSignatures     map[string]struct{}

	mode           Mode
	stagnation     float64
	noCompCount    int
	lastTotalScore float64
	iteration      int
}

// New constructs an Engine ready for Initialize then Run. logger and
// metricsCollectors may be nil (a nil logger is replaced with zap.NewNop()).
func New(endpoints []openapi.Endpoint, info openapi.SpecInfo, baseURL string, sender transport.Sender, auth authn.Provider, bugSink *reportsink.BugSink, iterSink *reportsink.IterationSink, metricsCollectors *metrics.Collectors, logger *zap.Logger, rng *rand.Rand) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Endpoints:          endpoints,
		SpecInfo:           info,
		BaseURL:            baseURL,
		Sender:             sender,
		Auth:               auth,
		BugSink:            bugSink,
		IterSink:           iterSink,
		Metrics:            metricsCollectors,
		Logger:             logger,
		RNG:                rng,
		table:              apiprowl.NewDynamicIDTable(),
		cumulativeCoverage: feedback.NewCoverage(),
		seenFields:         map[string]struct{}{},
		seenSignatures:     map[string]struct{}{},
		mode:               ModeExploration,
	}
}

// Corpus exposes the current corpus, primarily for tests and reporting.
func (e *Engine) Corpus() apiprowl.Corpus { return e.corpus }

// Mode reports the engine's current exploration/mutation state.
func (e *Engine) Mode() Mode { return e.mode }

// Initialize builds and runs the seed phase: every endpoint qualifying
// as a seed (selector.IsSeedEndpoint), or the fallback seeds if none
// qualify, is built, resolved, sent, analyzed, and -- if interesting --
// appended to the corpus.
func (e *Engine) Initialize(ctx context.Context) error {
	var seeds []openapi.Endpoint
	for _, ep := range e.Endpoints {
		if selector.IsSeedEndpoint(ep) {
			seeds = append(seeds, ep)
		}
	}
	if len(seeds) == 0 {
		seeds = selector.SelectFallbackSeeds(e.Endpoints, selector.FallbackSeedCount)
	}

	for _, ep := range seeds {
		req := reqbuild.Build(ep, e.RNG)
		e.checkGeneratedBody(ep, req)
		resolved := depresolve.Resolve(req, e.table, e.RNG)
		e.runSequence(ctx, "Initialization", []apiprowl.Request{resolved})
	}
	return nil
}

// checkGeneratedBody validates a freshly built request body against its
// endpoint's declared schema, surfacing a genvalue/reqbuild generator bug
// as a warning instead of letting it arrive downstream as a silent 400.
func (e *Engine) checkGeneratedBody(ep openapi.Endpoint, req apiprowl.Request) {
	result, err := ep.ValidateBody(req.Body)
	if err != nil {
		e.Logger.Warn("body schema failed to compile", zap.String("path", ep.Path), zap.Error(err))
		return
	}
	if !result.Valid {
		e.Logger.Warn("generated request body failed its own schema",
			zap.String("path", ep.Path), zap.String("method", ep.Method), zap.Strings("errors", result.Errors))
	}
}

// Run executes the iteration loop until budget has elapsed, checked
// only between iterations. It also exits cleanly (nil error) the moment
// the corpus has nothing left to select from -- spec.md §7's
// NoViableTests/EmptyCorpus disposition -- rather than busy-looping
// until the budget runs out.
func (e *Engine) Run(ctx context.Context, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if done := e.runIteration(ctx); done {
			return nil
		}
	}
	return nil
}

// runIteration runs a single loop iteration and reports whether the
// engine has hit a terminal, no-progress-possible condition (empty
// corpus or every entry at or over MaxSequenceLength) that should end Run
// early.
func (e *Engine) runIteration(ctx context.Context) bool {
	e.iteration++

	var extended []apiprowl.Request
	var phase string

	switch e.mode {
	case ModeExploration:
		var ok bool
		extended, ok = e.explorationStep()
		if !ok {
			return e.corpusExhausted()
		}
		phase = "Exploration"
	case ModeMutation:
		extended = e.mutationStep()
		phase = "Mutation"
	}

	if len(extended) == 0 {
		return e.corpusExhausted()
	}

	e.runSequence(ctx, phase, extended)

	if e.Metrics != nil {
		e.Metrics.IterationsTotal.Inc()
		e.Metrics.CorpusSize.Set(float64(len(e.corpus)))
	}
	return false
}

func (e *Engine) corpusExhausted() bool {
	_, err := selector.SelectTest(e.corpus, e.RNG)
	return err == selector.ErrEmptyCorpus || err == selector.ErrNoViableTests
}

// explorationStep implements the EXPLORATION branch of the state
// machine: pick a base test, choose a compatible endpoint to extend it
// with, maybe swap in a shallow mutant, compute the sequence signature,
// and update the stagnation counter. Returns ok=false when the
// iteration should be skipped (no corpus, or a duplicate signature with
// nothing left to do).
func (e *Engine) explorationStep() ([]apiprowl.Request, bool) {
	base, err := selector.SelectTest(e.corpus, e.RNG)
	if err != nil {
		e.Logger.Warn("selector failed", zap.Error(err))
		return nil, false
	}

	nextEp, err := selector.ChooseCompatibleEndpoint(base, e.Endpoints, e.table)
	var extended []apiprowl.Request

	if err != nil {
		e.noCompCount++
		if e.noCompCount >= NoCompatibleThreshold {
			e.noCompCount = 0
			fallback, ok := e.pickUnusedEndpoint()
			if !ok {
				return nil, false
			}
			req := reqbuild.Build(fallback, e.RNG)
			e.checkGeneratedBody(fallback, req)
			extended = []apiprowl.Request{depresolve.Resolve(req, e.table, e.RNG)}
		} else {
			return nil, false
		}
	} else {
		e.noCompCount = 0
		req := reqbuild.Build(nextEp, e.RNG)
		e.checkGeneratedBody(nextEp, req)
		resolved := depresolve.Resolve(req, e.table, e.RNG)
		if e.RNG.Float64() < MutationProbability {
			if variants := mutate.MutateRequest(resolved, nextEp.RequestBody, e.RNG); len(variants) > 0 {
				resolved = variants[e.RNG.Intn(len(variants))]
			}
		}
		extended = append(append([]apiprowl.Request{}, base.Sequence...), resolved)
	}

	sig := apiprowl.SequenceSignature(extended)
	key := apiprowl.SignatureKey(sig)

	cumulativeTCL := feedback.TCLScore(e.cumulativeCoverage, e.SpecInfo)

	switch {
	case e.hasSeenSignature(key):
		e.stagnation++
		e.lastTotalScore = cumulativeTCL
		if e.stagnation >= StagnationWindow {
			e.mode = ModeMutation
		}
		return nil, false
	case cumulativeTCL <= e.lastTotalScore:
		e.stagnation += 0.2
		e.seenSignatures[key] = struct{}{}
	default:
		e.stagnation = 0
		e.seenSignatures[key] = struct{}{}
	}
	e.lastTotalScore = cumulativeTCL

	if e.stagnation >= StagnationWindow {
		e.mode = ModeMutation
		return nil, false
	}

	return extended, true
}

func (e *Engine) hasSeenSignature(key string) bool {
	_, ok := e.seenSignatures[key]
	return ok
}

// pickUnusedEndpoint returns a uniformly random endpoint whose templated
// path does not appear anywhere in the corpus.
func (e *Engine) pickUnusedEndpoint() (openapi.Endpoint, bool) {
	usedPaths := map[string]struct{}{}
	for _, entry := range e.corpus {
		for _, req := range entry.Sequence {
			if ep, ok := selector.FindEndpointByRequest(req, e.Endpoints); ok {
				usedPaths[ep.Path] = struct{}{}
			}
		}
	}

	var candidates []openapi.Endpoint
	for _, ep := range e.Endpoints {
		if _, used := usedPaths[ep.Path]; !used {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return openapi.Endpoint{}, false
	}
	return candidates[e.RNG.Intn(len(candidates))], true
}

// mutationStep implements the MUTATION branch: deep-mutate the base
// test's full sequence, with no compatibility check and no signature
// gating.
func (e *Engine) mutationStep() []apiprowl.Request {
	base, err := selector.SelectTest(e.corpus, e.RNG)
	if err != nil {
		e.Logger.Warn("selector failed during mutation", zap.Error(err))
		return nil
	}
	lookup := func(req apiprowl.Request) (openapi.Endpoint, bool) {
		return selector.FindEndpointByRequest(req, e.Endpoints)
	}
	return mutate.DeepMutation(base.Sequence, lookup, e.RNG)
}

// runSequence sends extended end to end, logs it, classifies bugs,
// updates every piece of shared state, and appends a corpus entry.
// This is the "Post-execution (both modes)" step shared by
// initialization and every iteration.
func (e *Engine) runSequence(ctx context.Context, phase string, extended []apiprowl.Request) {
	var authHeader map[string]string
	if e.Auth != nil && e.Auth.HasAuth() {
		authHeader = e.Auth.Header()
	}

	responses := e.Sender.SendSequence(ctx, e.BaseURL, authHeader, extended)

	if e.IterSink != nil {
		if err := e.IterSink.LogIteration(e.iteration, phase, extended, responses); err != nil {
			e.Logger.Warn("failed to write iteration log", zap.Error(err))
		}
	}

	if e.BugSink != nil {
		for i, req := range extended {
			if i < len(responses) {
				e.BugSink.Analyze(req, responses[i])
			}
		}
	}

	seqCoverage := feedback.ExtractSequenceCoverage(extended, responses)
	feedback.MergeInto(e.cumulativeCoverage, seqCoverage)

	var diversity float64
	if len(responses) > 0 {
		n, fields := feedback.Diversity(responses[len(responses)-1], e.seenFields)
		diversity = float64(n)
		for f := range fields {
			e.seenFields[f] = struct{}{}
		}
	}

	tcl := feedback.TCLScore(seqCoverage, e.SpecInfo)

	if e.Metrics != nil {
		e.Metrics.TCLScore.Set(feedback.TCLScore(e.cumulativeCoverage, e.SpecInfo))
	}

	if len(responses) > 0 {
		ids := harvest.ExtractIDs([]byte(responses[len(responses)-1].Body), openapi.DynamicParamNames(e.Endpoints))
		for token, values := range ids {
			for _, v := range values {
				e.table.Add(token, v)
			}
		}
	}

	e.corpus = append(e.corpus, apiprowl.TestEntry{
		Sequence:  extended,
		Responses: responses,
		TCL:       tcl,
		Diversity: diversity,
	})
}

// Iteration returns the number of loop iterations run so far. The seed
// phase in Initialize does not count.
func (e *Engine) Iteration() int { return e.iteration }
