package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SampleExtension is the file extension of every downloaded sample.
const SampleExtension = ".flac"

// ambisonicsSegment is the remote folder holding the ambisonics recordings.
const ambisonicsSegment = "ambisonics"

// Sample represents one audio recording of the dataset.
//
// Sample carries the identifier read from the metadata table together with
// the two values derived from it:
//   - Path, where the recording is stored locally
//   - URL, where the recording is fetched from
//
// Both are computed by NewSample and depend only on the identifier and the
// PathConfig, so the same sample always maps to the same file and URL.
//
// Example:
//
//	cfg := &PathConfig{TargetPath: "/data", BaseURL: "https://example.com"}
//	sample := NewSample(7, cfg)
//	// sample.Path = "/data/000007.flac"
//	// sample.URL  = "https://example.com/ambisonics/000007.flac"
type Sample struct {
	// ID is the sample identifier from the metadata table.
	ID int

	// FileName is the zero-padded file name, e.g. "000042.flac".
	FileName string

	// Path is the local file path the recording is written to.
	Path string

	// URL is the remote location of the recording.
	URL string
}

// PathConfig holds the settings that sample paths and URLs are derived from.
type PathConfig struct {
	// TargetPath is the directory samples are downloaded into.
	TargetPath string

	// BaseURL is the dataset root, without the "ambisonics" segment.
	BaseURL string
}

// NewSample creates a Sample with computed path and URL.
func NewSample(id int, cfg *PathConfig) *Sample {
	return &Sample{
		ID:       id,
		FileName: SampleFileName(id),
		Path:     SamplePath(cfg.TargetPath, id),
		URL:      SampleURL(cfg.BaseURL, id),
	}
}

// NewSamples creates one Sample per identifier, preserving order.
func NewSamples(ids []int, cfg *PathConfig) []*Sample {
	samples := make([]*Sample, len(ids))
	for i, id := range ids {
		samples[i] = NewSample(id, cfg)
	}
	return samples
}

// SampleFileName renders the identifier zero-padded to 6 digits with the
// sample extension. Identifiers wider than 6 digits are rendered in full.
//
//	SampleFileName(42)     // "000042.flac"
//	SampleFileName(123456) // "123456.flac"
func SampleFileName(id int) string {
	return fmt.Sprintf("%06d%s", id, SampleExtension)
}

// SamplePath returns "<targetDir>/<zero-padded id>.flac".
func SamplePath(targetDir string, id int) string {
	return filepath.Join(targetDir, SampleFileName(id))
}

// SampleURL returns "<baseURL>/ambisonics/<zero-padded id>.flac".
//
// Trailing slashes on baseURL are dropped so that "https://host/v1" and
// "https://host/v1/" produce the same URL.
func SampleURL(baseURL string, id int) string {
	return strings.TrimRight(baseURL, "/") + "/" + ambisonicsSegment + "/" + SampleFileName(id)
}
