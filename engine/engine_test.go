package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/openapi"
)

// fakeSender always returns a fixed response per request, ignoring the
// request entirely -- enough to drive the control loop deterministically
// in tests without a real HTTP server.
type fakeSender struct {
	status int
	body   string
}

func (f *fakeSender) SendSequence(ctx context.Context, baseURL string, authHeader map[string]string, seq []apiprowl.Request) []apiprowl.Response {
	responses := make([]apiprowl.Response, len(seq))
	for i := range seq {
		responses[i] = apiprowl.Response{
			Status:  f.status,
			Body:    f.body,
			Headers: map[string]string{"Content-Type": "application/json"},
		}
	}
	return responses
}

func twoEndpoints() []openapi.Endpoint {
	return []openapi.Endpoint{
		{Path: "/widgets", Method: "GET"},
		{Path: "/widgets", Method: "POST"},
		{Path: "/widgets/{id}", Method: "GET", PathParams: []openapi.Parameter{{Name: "id", In: "path", Required: true}}},
	}
}

func newTestEngine() *Engine {
	endpoints := twoEndpoints()
	info := openapi.BuildSpecInfo(endpoints)
	sender := &fakeSender{status: 200, body: `{"id":"abc123"}`}
	rng := rand.New(rand.NewSource(42))
	return New(endpoints, info, "http://example.invalid", sender, nil, nil, nil, nil, nil, rng)
}

func TestInitializeSeedsCorpusFromSeedEndpoints(t *testing.T) {
	e := newTestEngine()
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(e.Corpus()) == 0 {
		t.Fatal("expected Initialize to populate the corpus")
	}
	for _, entry := range e.Corpus() {
		if len(entry.Sequence) != 1 {
			t.Errorf("expected seed entries to have sequence length 1, got %d", len(entry.Sequence))
		}
	}
}

func TestInitializeFallsBackWhenNoSeedEndpoints(t *testing.T) {
	endpoints := []openapi.Endpoint{
		{Path: "/widgets/{a}/{b}", Method: "GET", PathParams: []openapi.Parameter{
			{Name: "a", In: "path", Required: true},
			{Name: "b", In: "path", Required: true},
		}},
	}
	info := openapi.BuildSpecInfo(endpoints)
	sender := &fakeSender{status: 200, body: `{}`}
	e := New(endpoints, info, "http://example.invalid", sender, nil, nil, nil, nil, nil, rand.New(rand.NewSource(1)))
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(e.Corpus()) == 0 {
		t.Fatal("expected fallback seeding to still populate the corpus")
	}
}

// TestStagnationTransitionsToMutation feeds the loop the same response
// for every request, so the only harvested ID is "abc123" and the few
// possible sequence shapes are soon all seen. From then on duplicate
// signatures push the stagnation counter past StagnationWindow, at which
// point the mode must become ModeMutation and never revert for the
// remainder of the run.
func TestStagnationTransitionsToMutation(t *testing.T) {
	e := newTestEngine()
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for i := 0; i < 2000 && e.Mode() == ModeExploration; i++ {
		e.runIteration(context.Background())
	}

	if e.Mode() != ModeMutation {
		t.Fatalf("expected engine to transition to ModeMutation within 2000 iterations, stagnation=%v", e.stagnation)
	}

	// Once in MUTATION, the mode must never revert.
	for i := 0; i < 20; i++ {
		e.runIteration(context.Background())
		if e.Mode() != ModeMutation {
			t.Fatal("mode reverted out of ModeMutation; transition must be one-way")
		}
	}
}

func TestModeStringer(t *testing.T) {
	if ModeExploration.String() != "exploration" {
		t.Errorf("ModeExploration.String() = %q", ModeExploration.String())
	}
	if ModeMutation.String() != "mutation" {
		t.Errorf("ModeMutation.String() = %q", ModeMutation.String())
	}
}

func TestPickUnusedEndpointExcludesUsedPaths(t *testing.T) {
	e := newTestEngine()
	e.corpus = apiprowl.Corpus{
		{Sequence: []apiprowl.Request{{Method: "GET", URL: "/widgets"}}},
	}
	for i := 0; i < 20; i++ {
		ep, ok := e.pickUnusedEndpoint()
		if !ok {
			t.Fatal("expected an unused endpoint to exist")
		}
		if ep.Path == "/widgets" {
			t.Fatalf("pickUnusedEndpoint returned a used path: %s", ep.Path)
		}
	}
}

func TestPickUnusedEndpointNoneLeft(t *testing.T) {
	endpoints := []openapi.Endpoint{{Path: "/a", Method: "GET"}}
	info := openapi.BuildSpecInfo(endpoints)
	e := New(endpoints, info, "http://example.invalid", &fakeSender{status: 200}, nil, nil, nil, nil, nil, rand.New(rand.NewSource(1)))
	e.corpus = apiprowl.Corpus{
		{Sequence: []apiprowl.Request{{Method: "GET", URL: "/a"}}},
	}
	if _, ok := e.pickUnusedEndpoint(); ok {
		t.Fatal("expected no unused endpoint once every path is covered")
	}
}
