package apiprowl

import "strings"

// MatchPath reports whether a concrete path (no query string, as actually
// sent on the wire) matches a spec path template such as "/users/{id}".
// Segment counts must be equal; each segment must match literally or the
// template segment must be a "{...}" placeholder. Grounded on
// original_source/feedback/utils.py's match_path.
func MatchPath(concrete, template string) bool {
	cSegs := splitPath(concrete)
	tSegs := splitPath(template)
	if len(cSegs) != len(tSegs) {
		return false
	}
	for i, t := range tSegs {
		if isPlaceholder(t) {
			continue
		}
		if cSegs[i] != t {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// NormalizePathSegment applies the idiosyncratic normalization rule used
// when computing a sequence's dedup signature: a segment is folded to the
// placeholder marker "{param}" when it is all-digits, or when it contains
// any rune that isn't lowercase alphanumeric. A segment only survives
// literally when it is non-empty and entirely lowercase alphanumeric with
// at least one non-digit rune. Grounded on
// original_source/utils/utils.py's normalize_path.
func NormalizePathSegment(seg string) string {
	if seg == "" {
		return seg
	}
	allDigits := true
	for _, r := range seg {
		lower := r >= 'a' && r <= 'z'
		digit := r >= '0' && r <= '9'
		if !lower && !digit {
			return "{param}"
		}
		if !digit {
			allDigits = false
		}
	}
	if allDigits {
		return "{param}"
	}
	return seg
}

// normalizePath strips the query string and normalizes every segment.
func normalizePath(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	segs := splitPath(url)
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = NormalizePathSegment(s)
	}
	return "/" + strings.Join(out, "/")
}

// SequenceStep is one (method, normalized-path) pair contributing to a
// sequence signature.
type SequenceStep struct {
	Method string
	Path   string
}

// SequenceSignature computes the dedup signature of a request sequence:
// the ordered list of (method, normalized path) pairs. Two sequences with
// the same signature are considered the same test shape by the engine's
// dedup check, even if their concrete IDs differ. Grounded on
// original_source/utils/utils.py's sequence_signature.
func SequenceSignature(seq []Request) []SequenceStep {
	sig := make([]SequenceStep, len(seq))
	for i, req := range seq {
		sig[i] = SequenceStep{Method: req.Method, Path: normalizePath(req.URL)}
	}
	return sig
}

// SignatureKey renders a SequenceSignature as a single comparable string,
// suitable for use as a map key in the engine's dedup set.
func SignatureKey(sig []SequenceStep) string {
	var b strings.Builder
	for _, s := range sig {
		b.WriteString(s.Method)
		b.WriteByte(' ')
		b.WriteString(s.Path)
		b.WriteByte('|')
	}
	return b.String()
}
