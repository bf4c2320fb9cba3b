package openapi

import "testing"

func TestResolveSchemaCyclicRefDoesNotSuppressSiblingBranch(t *testing.T) {
	root := map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"Node": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"left":  map[string]any{"$ref": "#/components/schemas/Node"},
						"right": map[string]any{"$ref": "#/components/schemas/Node"},
						"value": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
	res := newResolver(root)
	nodeSchema := root["components"].(map[string]any)["schemas"].(map[string]any)["Node"].(map[string]any)

	resolved := res.ResolveSchema(map[string]any{"$ref": "#/components/schemas/Node"}, nil)
	props := resolved["properties"].(map[string]any)

	left := props["left"].(map[string]any)
	if _, cyclic := left["$ref"]; cyclic {
		t.Fatal("left branch should have resolved one level, not stayed a raw $ref")
	}
	leftProps, ok := left["properties"].(map[string]any)
	if !ok {
		t.Fatal("left.properties missing after one resolution level")
	}
	// The self-referential left.left should truncate to an empty schema
	// rather than recursing forever or erroring.
	if leftLeft, ok := leftProps["left"].(map[string]any); ok {
		if len(leftLeft) != 0 {
			t.Errorf("expected cyclic truncation to {}, got %v", leftLeft)
		}
	}

	// right must independently resolve one level too -- proving visited
	// sets are not shared across sibling branches (left's visit of Node
	// must not suppress right's).
	right := props["right"].(map[string]any)
	if _, ok := right["properties"]; !ok {
		t.Fatal("right branch was suppressed by left branch's visited set (shared-state bug)")
	}

	_ = nodeSchema
}

func TestResolveSchemaNilIsEmptyObject(t *testing.T) {
	res := newResolver(map[string]any{})
	got := res.ResolveSchema(nil, nil)
	if len(got) != 0 {
		t.Errorf("ResolveSchema(nil) = %v, want empty map", got)
	}
}

func TestResolveSchemaMissingRefIsEmpty(t *testing.T) {
	res := newResolver(map[string]any{})
	got := res.ResolveSchema(map[string]any{"$ref": "#/nowhere"}, nil)
	if len(got) != 0 {
		t.Errorf("ResolveSchema(missing ref) = %v, want empty map", got)
	}
}
