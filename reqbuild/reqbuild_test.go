package reqbuild

import (
	"math/rand"
	"testing"

	"github.com/antflydb/apiprowl/openapi"
)

func TestBuildPopulatesRequiredFields(t *testing.T) {
	ep := openapi.Endpoint{
		Path:   "/pets",
		Method: "POST",
		RequestBody: &openapi.RequestBody{
			Properties: map[string]any{
				"name": map[string]any{"type": "string"},
				"age":  map[string]any{"type": "integer"},
			},
			Required: []string{"name", "age"},
		},
	}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if req.Body["name"] != "example-string" {
		t.Errorf("body[name] = %v", req.Body["name"])
	}
	if req.Body["age"] != int64(123) {
		t.Errorf("body[age] = %v", req.Body["age"])
	}
}

func TestBuildLeavesPathPlaceholdersIntact(t *testing.T) {
	ep := openapi.Endpoint{Path: "/pets/{petId}", Method: "GET"}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if req.URL != "/pets/{petId}" {
		t.Errorf("URL = %q, want placeholder preserved", req.URL)
	}
}

func TestBuildPostWithNoRequiredPicksOptionalPreferringExample(t *testing.T) {
	ep := openapi.Endpoint{
		Path:   "/pets",
		Method: "POST",
		RequestBody: &openapi.RequestBody{
			Properties: map[string]any{
				"nickname": map[string]any{"type": "string"},
				"tag":      map[string]any{"type": "string", "example": "chosen"},
			},
		},
	}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if len(req.Body) != 1 {
		t.Fatalf("len(body) = %d, want 1", len(req.Body))
	}
	if req.Body["tag"] != "chosen" {
		t.Errorf("expected the example-bearing field to be chosen, got body = %v", req.Body)
	}
}

func TestBuildSkipsReadOnlyOptionalFields(t *testing.T) {
	ep := openapi.Endpoint{
		Path:   "/pets",
		Method: "POST",
		RequestBody: &openapi.RequestBody{
			Properties: map[string]any{
				"id":   map[string]any{"type": "string", "readOnly": true},
				"name": map[string]any{"type": "string"},
			},
		},
	}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if _, ok := req.Body["id"]; ok {
		t.Error("readOnly field should never be populated")
	}
}

func TestBuildNoBodyWhenEndpointHasNone(t *testing.T) {
	ep := openapi.Endpoint{Path: "/pets", Method: "GET"}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if req.Body != nil {
		t.Errorf("Body = %v, want nil", req.Body)
	}
}

func TestBuildHeaderParamsPopulated(t *testing.T) {
	ep := openapi.Endpoint{
		Path:   "/pets",
		Method: "GET",
		HeaderParams: []openapi.Parameter{
			{Name: "X-Trace-Id", In: "header", Required: true, Schema: map[string]any{"type": "string"}},
		},
	}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if req.Headers["X-Trace-Id"] != "example-string" {
		t.Errorf("header not populated: %v", req.Headers)
	}
}

func TestBuildPostWithMultipleNoExampleOptionalsVariesAcrossSeeds(t *testing.T) {
	ep := openapi.Endpoint{
		Path:   "/pets",
		Method: "POST",
		RequestBody: &openapi.RequestBody{
			Properties: map[string]any{
				"nickname": map[string]any{"type": "string"},
				"color":    map[string]any{"type": "string"},
			},
		},
	}
	picked := map[string]bool{}
	for seed := int64(0); seed < 20; seed++ {
		req := Build(ep, rand.New(rand.NewSource(seed)))
		if len(req.Body) != 1 {
			t.Fatalf("seed %d: len(body) = %d, want 1", seed, len(req.Body))
		}
		for k := range req.Body {
			picked[k] = true
		}
	}
	if len(picked) != 2 {
		t.Errorf("expected both candidates to be picked across seeds, got %v", picked)
	}
}

func TestBuildHeaderArrayParamUsesSimpleStyleJoin(t *testing.T) {
	ep := openapi.Endpoint{
		Path:   "/pets",
		Method: "GET",
		HeaderParams: []openapi.Parameter{
			{Name: "X-Tags", In: "header", Required: true, Schema: map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "example": "a"},
			}},
		},
	}
	req := Build(ep, rand.New(rand.NewSource(1)))
	if req.Headers["X-Tags"] != "a" {
		t.Errorf("X-Tags = %q, want simple-style-joined %q", req.Headers["X-Tags"], "a")
	}
}
