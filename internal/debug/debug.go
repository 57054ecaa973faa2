package debug

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RequestIDHeader carries the per-request id recorded in the request log.
const RequestIDHeader = "X-Request-Id"

// DebugTransport wraps http.RoundTripper to dump requests/responses (--trace)
type DebugTransport struct {
	Transport http.RoundTripper
	Output    io.Writer
}

// NewDebugTransport creates a new DebugTransport with the given base transport
// If output is nil, it defaults to os.Stderr
func NewDebugTransport(base http.RoundTripper, output io.Writer) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if output == nil {
		output = os.Stderr
	}
	return &DebugTransport{
		Transport: base,
		Output:    output,
	}
}

// RoundTrip implements http.RoundTripper
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	_, _ = fmt.Fprintf(t.Output, "\n--> %s %s\n", req.Method, req.URL)

	for key, values := range req.Header {
		if key == "Authorization" {
			_, _ = fmt.Fprintf(t.Output, "    %s: %s\n", key, redact(values[0]))
		} else {
			_, _ = fmt.Fprintf(t.Output, "    %s: %s\n", key, strings.Join(values, ", "))
		}
	}

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			_, _ = fmt.Fprintf(t.Output, "    [ERROR reading request body: %v]\n", err)
		} else {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes)) // Restore body for actual request
			if len(bodyBytes) > 0 {
				_, _ = fmt.Fprintf(t.Output, "    Body: %s\n", truncate(redactBody(string(bodyBytes)), 500))
			}
		}
	}

	resp, err := t.Transport.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		_, _ = fmt.Fprintf(t.Output, "<-- ERROR: %v (%s)\n\n", err, duration)
		return resp, err
	}

	_, _ = fmt.Fprintf(t.Output, "<-- %s (%s)\n", resp.Status, duration)

	for key, values := range resp.Header {
		_, _ = fmt.Fprintf(t.Output, "    %s: %s\n", key, strings.Join(values, ", "))
	}

	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			_, _ = fmt.Fprintf(t.Output, "    [ERROR reading response body: %v]\n\n", err)
		} else {
			resp.Body = io.NopCloser(bytes.NewReader(bodyBytes)) // Restore body for caller
			if len(bodyBytes) > 0 {
				_, _ = fmt.Fprintf(t.Output, "    Body: %s\n", truncate(string(bodyBytes), 1000))
			}
		}
	}

	_, _ = fmt.Fprintln(t.Output)

	return resp, err
}

// redact keeps the scheme and the last 4 characters of a credential.
func redact(val string) string {
	scheme, token, found := strings.Cut(val, " ")
	if !found {
		scheme, token = "", val
	}
	if len(token) > 10 {
		token = "..." + token[len(token)-4:]
	}
	if scheme == "" {
		return token
	}
	return scheme + " " + token
}

// redactBody hides password form/JSON values.
func redactBody(body string) string {
	if strings.Contains(body, "password") {
		return "[body contains credentials, omitted]"
	}
	return body
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "... [truncated]"
	}
	return s
}

// LogEntry is one line of the per-target request log.
type LogEntry struct {
	Time      time.Time
	RequestID string
	Method    string
	URL       string
	Status    int
	Duration  time.Duration
	Err       error
}

func (e LogEntry) String() string {
	status := fmt.Sprintf("%d", e.Status)
	if e.Err != nil {
		status = "ERROR " + e.Err.Error()
	}
	return fmt.Sprintf("%s %s %s %s -> %s (%s)",
		e.Time.Format(time.RFC3339), e.RequestID, e.Method, e.URL, status, e.Duration.Round(time.Millisecond))
}

// AppendLog appends entry to the log file at path, creating parent directories.
func AppendLog(path string, entry LogEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = fmt.Fprintln(f, entry.String())
	return err
}
