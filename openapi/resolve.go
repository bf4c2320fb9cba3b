package openapi

import "strings"

// resolver resolves JSON-pointer $ref entries against a single in-memory
// document, guarding against cycles with a per-descent visited set that
// is copied (never shared by reference) down sibling branches. A ref
// revisited on the current descent path resolves to an empty schema
// instead of failing -- truncate, don't error.
type resolver struct {
	root map[string]any
}

// newResolver builds a resolver over root.
func newResolver(root map[string]any) *resolver {
	return &resolver{root: root}
}

// ResolveSchema resolves schema fully: if schema itself is a $ref, it is
// followed; then properties, items, and each element of
// allOf/anyOf/oneOf are resolved recursively. visited carries the set of
// refs seen along this descent; every recursive call on a sibling branch
// receives its own copy so a ref truncated on one branch is still
// followed on another.
func (r *resolver) ResolveSchema(schema map[string]any, visited map[string]struct{}) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	if visited == nil {
		visited = map[string]struct{}{}
	}

	if ref, ok := schema["$ref"].(string); ok {
		if _, seen := visited[ref]; seen {
			return map[string]any{}
		}
		target := r.lookup(ref)
		if target == nil {
			return map[string]any{}
		}
		next := copyVisited(visited)
		next[ref] = struct{}{}
		return r.ResolveSchema(target, next)
	}

	out := shallowCopy(schema)

	if props, ok := out["properties"].(map[string]any); ok {
		resolvedProps := make(map[string]any, len(props))
		for name, v := range props {
			if sub, ok := v.(map[string]any); ok {
				resolvedProps[name] = r.ResolveSchema(sub, copyVisited(visited))
			} else {
				resolvedProps[name] = v
			}
		}
		out["properties"] = resolvedProps
	}

	if items, ok := out["items"].(map[string]any); ok {
		out["items"] = r.ResolveSchema(items, copyVisited(visited))
	}

	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		list, ok := out[key].([]any)
		if !ok {
			continue
		}
		resolved := make([]any, len(list))
		for i, v := range list {
			if sub, ok := v.(map[string]any); ok {
				resolved[i] = r.ResolveSchema(sub, copyVisited(visited))
			} else {
				resolved[i] = v
			}
		}
		out[key] = resolved
	}

	return out
}

// lookup walks a "#/a/b/c" JSON pointer against the root document.
// Non-local refs (not starting with "#/") are not supported and resolve
// to nil, matching the original resolver's scope (this fuzzer only ever
// sees single-file specs).
func (r *resolver) lookup(ref string) map[string]any {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ref, "#/"), "/")
	var cur any = r.root
	for _, p := range parts {
		p = unescapePointerToken(p)
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	m, ok := cur.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

func unescapePointerToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}

func copyVisited(visited map[string]struct{}) map[string]struct{} {
	next := make(map[string]struct{}, len(visited))
	for k := range visited {
		next[k] = struct{}{}
	}
	return next
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
