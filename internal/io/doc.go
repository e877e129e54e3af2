// Package ioutils provides file system utilities for the downloader.
//
// This package contains functions for:
//   - Existence checks
//   - Create-only file writing, direct or through a temp file + rename
//   - Cleanup of temp files left by interrupted writes
//   - Directory creation
//
// Writers never replace an existing file: if a file appears at the target
// path, the write fails with an error matching fs.ErrExist.
//
// # File Operations
//
//	// Skip work that is already done
//	if ioutils.Exists("/data/000042.flac") { ... }
//
//	// Create the file directly (O_EXCL)
//	err := ioutils.WriteNewFile(ctx, "/data/000042.flac", body)
//
//	// Or write to a temp file and rename it into place
//	err := ioutils.WriteFileAtomic(ctx, "/data/000042.flac", body)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/data")
package ioutils
