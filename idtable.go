package apiprowl

import (
	"sort"
	"strings"
)

// DynamicIDTable maps a lowercased token name (e.g. "id", "ownerid",
// "token") to the set of string values harvested for it at runtime.
// Values never expire and are never removed -- only appended, in the order
// they were first observed, per spec.md §3.
type DynamicIDTable struct {
	values map[string][]string
	seen   map[string]map[string]struct{}
}

// NewDynamicIDTable returns an empty table ready to use.
func NewDynamicIDTable() *DynamicIDTable {
	return &DynamicIDTable{
		values: make(map[string][]string),
		seen:   make(map[string]map[string]struct{}),
	}
}

// Add records value under token, unless it is already present for that
// token. token is expected to already be lowercased by the caller
// (harvest.ExtractIDs does this).
func (t *DynamicIDTable) Add(token, value string) {
	if t.seen[token] == nil {
		t.seen[token] = make(map[string]struct{})
	}
	if _, ok := t.seen[token][value]; ok {
		return
	}
	t.seen[token][value] = struct{}{}
	t.values[token] = append(t.values[token], value)
}

// Values returns the observed values for token, or nil if none.
func (t *DynamicIDTable) Values(token string) []string {
	return t.values[token]
}

// Tokens returns every token name currently holding at least one value.
// Iteration order is not meaningful; callers that need determinism should
// sort.
func (t *DynamicIDTable) Tokens() []string {
	tokens := make([]string, 0, len(t.values))
	for k := range t.values {
		tokens = append(tokens, k)
	}
	return tokens
}

// Len reports how many distinct tokens currently hold values.
func (t *DynamicIDTable) Len() int {
	return len(t.values)
}

// MatchingKey implements the shared "prefix or suffix, either direction"
// matching rule used by DependencyResolver (spec.md §4.3) and the
// Selector's compatibility check (§4.7). The harvester does not call it;
// harvest.ExtractIDs checks only whether the key starts or ends with a
// token.
// It returns the table key satisfying the relation with name,
// case-insensitively, and whether any key matched at all. Candidate keys
// are sorted before the scan so the result is deterministic across runs
// with the same RNG seed even though Tokens()'s own order isn't.
func (t *DynamicIDTable) MatchingKey(name string) (string, bool) {
	name = strings.ToLower(name)
	keys := t.Tokens()
	sort.Strings(keys)
	for _, k := range keys {
		lk := strings.ToLower(k)
		if relatedTokens(name, lk) {
			return k, true
		}
	}
	return "", false
}

// Has reports whether name has a matching key with at least one value.
func (t *DynamicIDTable) Has(name string) bool {
	key, ok := t.MatchingKey(name)
	if !ok {
		return false
	}
	return len(t.values[key]) > 0
}

// relatedTokens is true iff a and b share a prefix-or-suffix relationship
// in either direction -- the single shared implementation of the matching
// rule that original_source/generator/utils.py duplicates as
// has_matching_id and get_matching_key.
func relatedTokens(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasSuffix(a, b) ||
		strings.HasPrefix(b, a) || strings.HasSuffix(b, a)
}
