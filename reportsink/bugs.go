// Package reportsink writes the two on-disk artifacts the fuzzer
// produces as it runs: a grouped bug report and a per-iteration request/
// response log.
package reportsink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/antflydb/apiprowl"
	"github.com/antflydb/apiprowl/openapi"
)

// BugCategory names one of the five grouped bug buckets.
type BugCategory string

const (
	CategoryStatusCode         BugCategory = "status_code"
	CategoryServerError        BugCategory = "server_error"
	CategoryStackTrace         BugCategory = "stack_trace"
	CategoryEmptyBody          BugCategory = "empty_body"
	CategoryInvalidContentType BugCategory = "invalid_content_type"
)

// stackTraceMarkers is the literal, Java-biased substring list preserved
// from the source this was distilled from.
var stackTraceMarkers = []string{"NullPointerException", "StackTrace", "java.lang", "at "}

var allowedEmptyStatuses = map[int]struct{}{204: {}, 205: {}, 304: {}}

// Bug is one finding: the category it fell into, the request that
// triggered it, and the response that exhibited it.
type Bug struct {
	Category BugCategory
	Request  apiprowl.Request
	Response apiprowl.Response
}

// BugSink accumulates bugs grouped by category and writes them to
// feedback/logs/<timestamp>_bugs_grouped.log on Flush.
type BugSink struct {
	mu     sync.Mutex
	path   string
	groups map[BugCategory][]Bug
	info   openapi.SpecInfo
}

// NewBugSink returns a BugSink that will write to
// feedback/logs/<timestamp>_bugs_grouped.log under dir.
func NewBugSink(dir, timestamp string, info openapi.SpecInfo) (*BugSink, error) {
	logDir := filepath.Join(dir, "feedback", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("reportsink: creating bug log directory: %w", err)
	}
	return &BugSink{
		path:   filepath.Join(logDir, timestamp+"_bugs_grouped.log"),
		groups: map[BugCategory][]Bug{},
		info:   info,
	}, nil
}

// Analyze inspects req/resp and records every category it matches into
// the sink. A single response can land in more than one category (e.g.
// both server_error and stack_trace).
func (s *BugSink) Analyze(req apiprowl.Request, resp apiprowl.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := stripQuery(req.URL)
	status := itoa(resp.Status)

	if _, declared := s.info.StatusCodes[status]; !declared {
		s.record(CategoryStatusCode, req, resp)
	}
	if strings.HasPrefix(status, "5") {
		s.record(CategoryServerError, req, resp)
	}
	for _, marker := range stackTraceMarkers {
		if strings.Contains(resp.Body, marker) {
			s.record(CategoryStackTrace, req, resp)
			break
		}
	}
	if s.isSuspiciousEmptyBody(req.Method, path, resp) {
		s.record(CategoryEmptyBody, req, resp)
	}
	if isSuccessStatus(resp.Status) && !strings.Contains(resp.Headers["Content-Type"], "application/json") {
		s.record(CategoryInvalidContentType, req, resp)
	}
}

func (s *BugSink) isSuspiciousEmptyBody(method, path string, resp apiprowl.Response) bool {
	if _, allowed := allowedEmptyStatuses[resp.Status]; allowed {
		return false
	}
	key := openapi.ExpectationKey{Method: method, Path: path, Status: itoa(resp.Status)}
	if _, expected := s.info.ResponseExpectations[key]; !expected {
		return false
	}
	if !strings.HasPrefix(resp.Headers["Content-Type"], "application/json") {
		return false
	}
	return strings.TrimSpace(resp.Body) == ""
}

func (s *BugSink) record(cat BugCategory, req apiprowl.Request, resp apiprowl.Response) {
	s.groups[cat] = append(s.groups[cat], Bug{Category: cat, Request: req, Response: resp})
}

// Flush appends every accumulated bug, grouped by category, to the log
// file and clears the in-memory groups.
func (s *BugSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.empty() {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reportsink: opening bug log: %w", err)
	}
	defer f.Close()

	for _, cat := range []BugCategory{CategoryStatusCode, CategoryServerError, CategoryStackTrace, CategoryEmptyBody, CategoryInvalidContentType} {
		bugs := s.groups[cat]
		if len(bugs) == 0 {
			continue
		}
		fmt.Fprintf(f, "=== %s (%d) ===\n", cat, len(bugs))
		for _, b := range bugs {
			fmt.Fprintf(f, "%s %s -> status=%d\n", b.Request.Method, b.Request.URL, b.Response.Status)
			fmt.Fprintf(f, "  body: %s\n", truncate(b.Response.Body, 500))
		}
		fmt.Fprintln(f)
		s.groups[cat] = nil
	}
	return nil
}

func (s *BugSink) empty() bool {
	for _, bugs := range s.groups {
		if len(bugs) > 0 {
			return false
		}
	}
	return true
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
