package utils

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the default HTTP client
type DefaultHTTPClient struct{ Timeout time.Duration }

// Do implements the HTTPClient interface
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	// 0 means no timeout in Go's http.Client
	client := &http.Client{Timeout: c.Timeout}
	return client.Do(req)
}

// Default HTTP client with a short timeout; health polls and check requests
// against a local server should answer quickly or not at all.
var httpClient HTTPClient = &DefaultHTTPClient{Timeout: 60 * time.Second}

// GetHTTPClient returns the configured HTTP client, wrapped so every request
// is traced in the debug log when --debug is on.
func GetHTTPClient() HTTPClient {
	return &VerboseHTTPClient{Inner: httpClient}
}

// GetHTTPClientWithTimeout returns a client with an explicit timeout.
// A zero timeout disables the client-side deadline (used for long downloads).
func GetHTTPClientWithTimeout(timeout time.Duration) HTTPClient {
	return &VerboseHTTPClient{Inner: &DefaultHTTPClient{Timeout: timeout}}
}

// SetHTTPClient replaces the package-level client. Intended for tests.
func SetHTTPClient(c HTTPClient) {
	httpClient = c
}

// LogBodyContent safely reads and logs a body, restoring it for later use.
// Returns the restored body (or nil if input was nil). Truncates very large
// bodies to avoid flooding the debug log.
func LogBodyContent(body io.ReadCloser, label string) io.ReadCloser {
	if body == nil {
		LogDebug(fmt.Sprintf("  -> %s: <nil>", label))
		return nil
	}

	bodyBytes, err := io.ReadAll(body)
	body.Close()

	if err != nil {
		LogDebug(fmt.Sprintf("  -> %s: <error reading: %v>", label, err))
		return io.NopCloser(bytes.NewReader([]byte{}))
	}

	if len(bodyBytes) == 0 {
		LogDebug(fmt.Sprintf("  -> %s: <empty>", label))
		return io.NopCloser(bytes.NewReader(bodyBytes))
	}

	const maxLogSize = 1024
	bodyStr := string(bodyBytes)
	if len(bodyStr) > maxLogSize {
		bodyStr = bodyStr[:maxLogSize] + "... (truncated)"
	}

	LogDebug(fmt.Sprintf("  -> %s: %s", label, bodyStr))
	return io.NopCloser(bytes.NewReader(bodyBytes))
}

// LogHeaders writes request/response headers to the debug log with
// known-sensitive header values redacted.
func LogHeaders(kind string, hdr http.Header) {
	if hdr == nil {
		return
	}
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.Join(hdr.Values(k), ", ")
		switch strings.ToLower(k) {
		case "authorization", "cookie", "set-cookie", "x-api-key":
			v = "[REDACTED]"
		}
		LogDebug(fmt.Sprintf("  %s header %s: %s", kind, k, v))
	}
}

// VerboseHTTPClient wraps another HTTPClient and logs request/response
// basics, headers, and non-streaming bodies.
type VerboseHTTPClient struct{ Inner HTTPClient }

func (v *VerboseHTTPClient) Do(req *http.Request) (*http.Response, error) {
	inner := v.Inner
	if inner == nil {
		inner = &DefaultHTTPClient{}
	}
	// Without an initialized debug logger every LogDebug call is a no-op;
	// skip straight through so request bodies are never buffered for nothing.
	if debugLogger == nil {
		return inner.Do(req)
	}
	LogDebug(fmt.Sprintf("HTTP %s %s", req.Method, req.URL.String()))
	LogHeaders("request", req.Header)

	req.Body = LogBodyContent(req.Body, "request body")

	resp, err := inner.Do(req)
	if err != nil {
		LogDebug(fmt.Sprintf("  -> error: %v", err))
		return nil, err
	}
	LogDebug(fmt.Sprintf("  -> %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	LogHeaders("response", resp.Header)

	// Don't consume streaming bodies; the caller reads them incrementally.
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	isStreaming := strings.Contains(contentType, "text/event-stream") ||
		strings.Contains(contentType, "application/x-ndjson") ||
		strings.Contains(contentType, "application/octet-stream")

	if !isStreaming {
		resp.Body = LogBodyContent(resp.Body, "response body")
	} else {
		LogDebug("  -> response body: <streaming - not logged>")
	}

	return resp, nil
}
