// Package http provides the HTTP client used to fetch dataset samples.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Redirect following
//   - Optional timeouts
//   - Whole-body downloads with progress tracking
//
// # Basic Usage
//
//	client := http.NewClient(http.WithTimeout(30 * time.Second))
//
//	// Fetch a sample; the status code is reported, not judged
//	resp, err := client.Fetch(ctx, sampleURL, nil)
//
//	// Fetch a small document, failing on anything but 200 OK
//	data, err := client.Get(ctx, indexURL)
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   io.Discard,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
