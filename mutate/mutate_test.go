package mutate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/openapi"
)

func TestMutateValueInteger(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := MutateValue(int64(5), rng)
	valid := map[int64]bool{0: true, -1: true, 6: true, 4: true, 999999: true}
	if !valid[got.(int64)] {
		t.Errorf("MutateValue(5) = %v, not in expected set", got)
	}
}

func TestMutateValueBoolNegates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if MutateValue(true, rng) != false {
		t.Error("expected negation")
	}
	if MutateValue(false, rng) != true {
		t.Error("expected negation")
	}
}

func TestMutateValueListConcatenatesWithItself(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := MutateValue([]any{"a", "b"}, rng).([]any)
	if len(got) != 4 {
		t.Errorf("len(got) = %d, want 4", len(got))
	}
}

func TestMutateValueUnknownTypeIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var v any = nil
	if MutateValue(v, rng) != nil {
		t.Error("expected identity for nil")
	}
}

func TestMutateRequestOneVariantPerFieldPlusOptionals(t *testing.T) {
	req := apiprowl.Request{
		Method: "POST",
		URL:    "/pets",
		Body:   map[string]any{"name": "Rex"},
	}
	rb := &openapi.RequestBody{
		Properties: map[string]any{
			"name": map[string]any{"type": "string"},
			"tag":  map[string]any{"type": "string"},
		},
		Required: []string{"name"},
	}
	variants := MutateRequest(req, rb, rand.New(rand.NewSource(1)))
	if len(variants) != 2 {
		t.Fatalf("len(variants) = %d, want 2 (1 mutated field + 1 optional addition)", len(variants))
	}
	foundAddedTag := false
	for _, v := range variants {
		if _, ok := v.Body["tag"]; ok {
			foundAddedTag = true
		}
	}
	if !foundAddedTag {
		t.Error("expected one variant adding the missing optional 'tag' field")
	}
}

func TestMutateRequestEmptyBodyReturnsNil(t *testing.T) {
	req := apiprowl.Request{Method: "GET", URL: "/pets"}
	variants := MutateRequest(req, &openapi.RequestBody{}, rand.New(rand.NewSource(1)))
	if variants != nil {
		t.Errorf("expected nil for empty body, got %v", variants)
	}
}

func TestDeepMutationPassesThroughUnknownEndpoint(t *testing.T) {
	seq := []apiprowl.Request{{Method: "GET", URL: "/pets", Body: map[string]any{"x": "y"}}}
	lookup := func(apiprowl.Request) (openapi.Endpoint, bool) { return openapi.Endpoint{}, false }
	out := DeepMutation(seq, lookup, rand.New(rand.NewSource(1)))
	if out[0].Body["x"] != "y" {
		t.Error("expected passthrough when endpoint lookup fails")
	}
}

func TestDeepMutationAddsMissingOptionalProperties(t *testing.T) {
	seq := []apiprowl.Request{{Method: "POST", URL: "/pets", Body: map[string]any{"name": "Rex"}}}
	ep := openapi.Endpoint{
		Method: "POST",
		Path:   "/pets",
		RequestBody: &openapi.RequestBody{
			Properties: map[string]any{
				"name": map[string]any{"type": "string"},
				"age":  map[string]any{"type": "integer"},
			},
			Required: []string{"name"},
		},
	}
	lookup := func(apiprowl.Request) (openapi.Endpoint, bool) { return ep, true }
	out := DeepMutation(seq, lookup, rand.New(rand.NewSource(1)))
	if _, ok := out[0].Body["age"]; !ok {
		t.Error("expected missing optional 'age' to be added")
	}
	if out[0].Body["name"] != "Rex" {
		t.Error("expected existing required field left alone by deep mutation")
	}
}

func TestFuzzValueIntegerBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	valid := map[int64]bool{-1: true, 0: true, 1: true, math.MaxInt32: true, math.MinInt32: true}
	for i := 0; i < 20; i++ {
		got := FuzzValue(map[string]any{"type": "integer"}, rng).(int64)
		if !valid[got] {
			t.Errorf("FuzzValue = %v, not a boundary integer", got)
		}
	}
}

func TestFuzzValueUnknownTypeIsFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := FuzzValue(map[string]any{"type": "weird"}, rng)
	if got != "fuzz" {
		t.Errorf("FuzzValue = %v, want fuzz", got)
	}
}
