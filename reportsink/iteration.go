package reportsink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/antflydb/apiprowl"
)

// IterationSink appends one section per iteration to
// logger/logs/<timestamp>_iteration_log.txt, each section listing every
// request/response pair sent during that iteration.
type IterationSink struct {
	path string
}

// NewIterationSink returns an IterationSink writing under
// logger/logs/<timestamp>_iteration_log.txt inside dir.
func NewIterationSink(dir, timestamp string) (*IterationSink, error) {
	logDir := filepath.Join(dir, "logger", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("reportsink: creating iteration log directory: %w", err)
	}
	return &IterationSink{path: filepath.Join(logDir, timestamp+"_iteration_log.txt")}, nil
}

// LogIteration appends one section for iteration n, phase
// ("Initialization", "Exploration" or "Mutation"), listing each
// request/response pair in seq/responses.
func (s *IterationSink) LogIteration(n int, phase string, seq []apiprowl.Request, responses []apiprowl.Response) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reportsink: opening iteration log: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "--- %s iteration %d ---\n", phase, n)
	for i, req := range seq {
		fmt.Fprintf(f, "> %s %s\n", req.Method, req.URL)
		if len(req.Body) > 0 {
			fmt.Fprintf(f, "  body: %v\n", req.Body)
		}
		if i < len(responses) {
			resp := responses[i]
			fmt.Fprintf(f, "< status=%d\n", resp.Status)
			fmt.Fprintf(f, "  body: %s\n", truncate(resp.Body, 500))
		}
	}
	fmt.Fprintln(f)
	return nil
}
