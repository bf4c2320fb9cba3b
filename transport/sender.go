// Package transport sends request sequences against the target service,
// synthesizing an error response on transport failure or timeout rather
// than letting the error escape the fuzzing loop.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/antflydb/apiprowl"
	"github.com/bytedance/sonic"
)

// RequestTimeout is the per-request deadline; on expiry the response is
// synthesized rather than propagated as an error.
const RequestTimeout = 5 * time.Second

// Sender executes a sequence of requests in order against baseURL,
// merging authHeader into each one and retrying once on 401/403.
type Sender interface {
	SendSequence(ctx context.Context, baseURL string, authHeader map[string]string, seq []apiprowl.Request) []apiprowl.Response
}

// DefaultSender is the production Sender: net/http with a 5s per-request
// timeout and a single retry on 401/403 that re-derives the retry
// headers from the request's original headers (not the already-merged
// ones) before reapplying authHeader.
type DefaultSender struct {
	Client *http.Client
}

// NewDefaultSender returns a DefaultSender with a client whose Timeout
// matches RequestTimeout.
func NewDefaultSender() *DefaultSender {
	return &DefaultSender{Client: &http.Client{Timeout: RequestTimeout}}
}

// SendSequence sends every request in seq, in order, against baseURL.
func (s *DefaultSender) SendSequence(ctx context.Context, baseURL string, authHeader map[string]string, seq []apiprowl.Request) []apiprowl.Response {
	responses := make([]apiprowl.Response, len(seq))
	for i, req := range seq {
		responses[i] = s.sendOne(ctx, baseURL, authHeader, req)
	}
	return responses
}

func (s *DefaultSender) sendOne(ctx context.Context, baseURL string, authHeader map[string]string, req apiprowl.Request) apiprowl.Response {
	resp, err := s.do(ctx, baseURL, mergedHeaders(req.Headers, authHeader), req)
	if err != nil {
		return errorResponse(err)
	}
	if (resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden) && len(authHeader) > 0 {
		retryHeaders := mergedHeaders(req.Headers, authHeader)
		resp, err = s.do(ctx, baseURL, retryHeaders, req)
		if err != nil {
			return errorResponse(err)
		}
	}
	return resp
}

func (s *DefaultSender) do(ctx context.Context, baseURL string, headers map[string]string, req apiprowl.Request) (apiprowl.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := sonic.Marshal(req.Body)
		if err != nil {
			return apiprowl.Response{}, fmt.Errorf("transport: marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, baseURL+req.URL, bodyReader)
	if err != nil {
		return apiprowl.Response{}, fmt.Errorf("transport: building request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := s.Client.Do(httpReq)
	if err != nil {
		return apiprowl.Response{}, fmt.Errorf("transport: sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return apiprowl.Response{}, fmt.Errorf("transport: reading response body: %w", err)
	}

	return apiprowl.Response{
		Status:  httpResp.StatusCode,
		Body:    string(respBody),
		Headers: flattenHeaders(httpResp.Header),
	}, nil
}

func mergedHeaders(base, auth map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(auth))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range auth {
		out[k] = v
	}
	return out
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func errorResponse(err error) apiprowl.Response {
	return apiprowl.Response{Status: 0, Body: fmt.Sprintf("Error: %s", err), Headers: map[string]string{}}
}
