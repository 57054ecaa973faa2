package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/vmc-cli/vmc/internal/debug"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2

	// ProxyUserHeader asks the target to act as another user (admin only).
	ProxyUserHeader = "Proxy-User"
)

// Options tune the HTTP plumbing shared by every client.
type Options struct {
	// Transport is the base round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
	// TraceOutput receives request dumps when tracing is enabled.
	TraceOutput io.Writer
	// MaxRetries bounds retries of transient failures; negative disables retries.
	MaxRetries int
	// RetryWaitMin is the first backoff delay.
	RetryWaitMin time.Duration
}

// retryLogger implements the retryablehttp.LeveledLogger interface on slog.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	slog.Warn(msg, keysAndValues...)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	slog.Warn(msg, keysAndValues...)
}

// noRetryKey marks a request context whose request must be sent at most once.
type noRetryKey struct{}

// checkRetry retries transient failures of idempotent requests only.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// conn is the HTTP state shared by the v1 and v2 clients.
type conn struct {
	target   string
	token    string
	proxy    string
	trace    bool
	logPath  string
	traceOut io.Writer
	http     *http.Client
}

func newConn(target, token string, opts Options) *conn {
	c := &conn{
		target:   strings.TrimSuffix(target, "/"),
		token:    token,
		traceOut: opts.TraceOutput,
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Transport: &observer{base: base, conn: c},
		Timeout:   defaultTimeout,
	}
	switch {
	case opts.MaxRetries < 0:
		retryClient.RetryMax = 0
	case opts.MaxRetries > 0:
		retryClient.RetryMax = opts.MaxRetries
	default:
		retryClient.RetryMax = defaultMaxRetries
	}
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
		retryClient.RetryWaitMax = 10 * opts.RetryWaitMin
	}
	retryClient.Logger = retryLogger{}
	retryClient.CheckRetry = checkRetry
	// Hand the final response back so API errors keep their status and body.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c.http = retryClient.StandardClient()
	return c
}

func (c *conn) Target() string { return c.target }

func (c *conn) Token() string { return c.token }

func (c *conn) LoggedIn() bool { return c.token != "" }

func (c *conn) SetProxy(identity string) { c.proxy = identity }

func (c *conn) SetTrace(enabled bool) { c.trace = enabled }

func (c *conn) SetLogPath(path string) { c.logPath = path }

// observer writes the per-target request log and, when tracing, dumps each attempt.
type observer struct {
	base http.RoundTripper
	conn *conn
}

func (o *observer) RoundTrip(req *http.Request) (*http.Response, error) {
	next := o.base
	if o.conn.trace {
		next = debug.NewDebugTransport(next, o.conn.traceOut)
	}

	start := time.Now()
	resp, err := next.RoundTrip(req)

	if o.conn.logPath != "" {
		entry := debug.LogEntry{
			Time:      start,
			RequestID: req.Header.Get(debug.RequestIDHeader),
			Method:    req.Method,
			URL:       req.URL.Redacted(),
			Duration:  time.Since(start),
			Err:       err,
		}
		if resp != nil {
			entry.Status = resp.StatusCode
		}
		if logErr := debug.AppendLog(o.conn.logPath, entry); logErr != nil {
			slog.Debug("failed to write request log", "path", o.conn.logPath, "error", logErr)
		}
	}

	return resp, err
}

// do sends one request and decodes a JSON response into out.
func (c *conn) do(ctx context.Context, method, rawURL string, body io.Reader, header http.Header, out interface{}) error {
	if method != http.MethodGet && method != http.MethodHead {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, v := range values {
			if v != "" {
				req.Header.Add(key, v)
			}
		}
	}
	// An explicit Authorization entry, even an empty one, replaces the session token.
	if _, explicit := header["Authorization"]; !explicit && c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	if c.proxy != "" {
		req.Header.Set(ProxyUserHeader, c.proxy)
	}
	req.Header.Set(debug.RequestIDHeader, uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return newAPIError(req, resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *conn) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, c.target+path, nil, nil, out)
}

func (c *conn) postJSON(ctx context.Context, path string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	return c.do(ctx, http.MethodPost, c.target+path, bytes.NewReader(data), header, out)
}

func (c *conn) postForm(ctx context.Context, rawURL string, form url.Values, header http.Header, out interface{}) error {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), header, out)
}
