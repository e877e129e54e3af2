// Package download provides the fetch-cache loop that mirrors the Spatial
// LibriSpeech audio files into a local directory.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Read the sample identifiers from the metadata table
//  2. Derive each sample's local path and remote URL
//  3. Skip samples whose file already exists
//  4. Fetch the remaining samples and write them to disk
//  5. Generate a playlist (optional)
//
// Re-running after a failure or an interruption resumes at the first sample
// that has no file yet.
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	}, download.WithLogger(logger.Sugar()))
//
//	if err := manager.Initialize(ctx, settings.MetadataPath); err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := manager.StartDownloads(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Failures
//
// There are no retries. The first failure stops the run and is returned as
// an *Error whose Kind tells transport, HTTP status and storage failures
// apart. A non-2xx response is a failure unless settings.AcceptAnyStatus is
// set, in which case its body is saved like any other.
//
// # Concurrency
//
// With settings.MaxConcurrentDownloads at 1 (the default) samples are
// processed strictly in order, one request at a time. Higher values run that
// many workers; the first error cancels the others, and log order is no
// longer the metadata order.
//
// The progress callback may be called from several goroutines at once.
package download
