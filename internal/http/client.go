package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "SpatialLibriSpeechDownloader"

// Client wraps HTTP operations for fetching dataset samples.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional request timeout (none by default)
//   - Redirect following (net/http default policy, up to 10 hops)
//   - Whole-body fetch into memory with progress tracking
//
// Example usage:
//
//	client := NewClient()
//
//	resp, err := client.Fetch(ctx, sampleURL, func(read, total int64) {
//	    fmt.Printf("%d / %d bytes\n", read, total)
//	})
//	if err != nil {
//	    // transport failure: DNS, refused connection, TLS, timeout...
//	}
//	if !resp.OK() {
//	    // the server answered with a non-2xx status
//	}
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the overall request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent overrides the User-Agent header. An empty value keeps the default.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - no timeout
//   - "SpatialLibriSpeechDownloader" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code of the final response.
	StatusCode int

	// Status is the status line, e.g. "404 Not Found".
	Status string

	// Body holds the complete response body.
	Body []byte
}

// OK reports whether the response has a 2xx status code.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: io.Discard,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	body, err := io.ReadAll(io.TeeReader(response.Body, pw))
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Fetch performs a single GET request and reads the whole body into memory.
//
// Redirects are followed. The status code is NOT checked: any response the
// server produced is returned, and the caller decides what a non-2xx status
// means. An error is returned only when the request could not be completed
// (building the request, connecting, TLS, timeout, or reading the body).
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to fetch
//   - onProgress: Optional callback called with (bytesRead, totalBytes)
//     Pass nil to disable progress tracking
func (c *Client) Fetch(ctx context.Context, url string, onProgress func(read, total int64)) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if onProgress != nil {
		body = io.TeeReader(resp.Body, &ProgressWriter{
			Writer:   io.Discard,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		})
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       data,
	}, nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Unlike Fetch, Get treats any status other than 200 OK as an error.
//
// Example:
//
//	data, err := client.Get(ctx, "https://example.com/index.txt")
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Fetch(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return resp.Body, nil
}
