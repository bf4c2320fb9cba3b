package genvalue

import (
	"math/rand"
	"strings"
	"testing"
)

func TestExampleStringFormats(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cases := []struct {
		schema map[string]any
		want   any
	}{
		{map[string]any{"type": "string", "format": "email"}, "user@example.com"},
		{map[string]any{"type": "string", "format": "date"}, "2025-01-01"},
		{map[string]any{"type": "string", "format": "date-time"}, "2025-01-01T00:00:00Z"},
		{map[string]any{"type": "string"}, "example-string"},
		{map[string]any{"type": "boolean"}, true},
	}
	for _, c := range cases {
		got := Example(c.schema, rng)
		if got != c.want {
			t.Errorf("Example(%v) = %v, want %v", c.schema, got, c.want)
		}
	}
}

func TestExampleUUIDFormatIsWellFormed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Example(map[string]any{"type": "string", "format": "uuid"}, rng)
	s, ok := got.(string)
	if !ok {
		t.Fatalf("Example returned %T, want string", got)
	}
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		t.Errorf("Example(uuid) = %q, want a well-formed UUID string", s)
	}
}

func TestExampleUUIDFormatDeterministicForSameSeed(t *testing.T) {
	schema := map[string]any{"type": "string", "format": "uuid"}
	a := Example(schema, rand.New(rand.NewSource(7)))
	b := Example(schema, rand.New(rand.NewSource(7)))
	if a != b {
		t.Errorf("Example(uuid) not deterministic for identical rng seed: %v vs %v", a, b)
	}
}

func TestExampleUsesExampleFieldVerbatim(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	schema := map[string]any{"type": "string", "example": "pinned-value"}
	got := Example(schema, rng)
	if got != "pinned-value" {
		t.Errorf("Example = %v, want pinned-value", got)
	}
}

func TestExampleIntegerClamp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	schema := map[string]any{"type": "integer", "minimum": float64(0), "maximum": float64(10)}
	got := Example(schema, rng)
	if got != int64(10) {
		t.Errorf("Example = %v, want 10 (clamped)", got)
	}
}

func TestExampleIntegerDefaultRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Example(map[string]any{"type": "integer"}, rng)
	if got != int64(123) {
		t.Errorf("Example = %v, want 123", got)
	}
}

func TestExampleNumberRounding(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Example(map[string]any{"type": "number"}, rng)
	if got != 123.45 {
		t.Errorf("Example = %v, want 123.45", got)
	}
}

func TestExampleUnknownTypeFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Example(map[string]any{"type": "weird"}, rng)
	if got != "fallback" {
		t.Errorf("Example = %v, want fallback", got)
	}
}

func TestExampleArraySingleton(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	schema := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	got, ok := Example(schema, rng).([]any)
	if !ok || len(got) != 1 || got[0] != "example-string" {
		t.Errorf("Example = %v, want [example-string]", got)
	}
}

func TestExampleObjectDropsNilValues(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"junk": map[string]any{"type": "unknown-type-that-still-yields-fallback"},
			"gone": map[string]any{"type": "string", "example": nil},
		},
	}
	got, ok := Example(schema, rng).(map[string]any)
	if !ok {
		t.Fatalf("Example did not return a map")
	}
	if got["name"] != "example-string" {
		t.Errorf("name = %v, want example-string", got["name"])
	}
	if _, present := got["gone"]; present {
		t.Errorf("gone = %v, want the nil-valued property dropped", got["gone"])
	}
}

func TestMatchingStringDigitPattern(t *testing.T) {
	s, ok := MatchingString(`^\d{3,5}$`)
	if !ok {
		t.Fatal("expected pattern to be supported")
	}
	if len(s) != 5 {
		t.Errorf("len(s) = %d, want 5 (max of range)", len(s))
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			t.Errorf("non-digit rune in generated string: %q", s)
		}
	}
}

func TestMatchingStringUnsupportedPattern(t *testing.T) {
	_, ok := MatchingString(`^[a-z]+$`)
	if ok {
		t.Error("expected unsupported pattern to report ok = false")
	}
}
