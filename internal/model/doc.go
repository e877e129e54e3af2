// Package model defines the core data structures used throughout
// the Spatial LibriSpeech downloader.
//
// # Sample
//
// Sample represents one recording listed in the metadata table, with its
// local path and remote URL computed from the identifier:
//
//	cfg := &model.PathConfig{
//	    TargetPath: "../data/audio_files",
//	    BaseURL:    "https://example.com/spatial-librispeech/v1",
//	}
//	sample := model.NewSample(42, cfg)
//	fmt.Println(sample.Path) // ../data/audio_files/000042.flac
//	fmt.Println(sample.URL)  // https://example.com/spatial-librispeech/v1/ambisonics/000042.flac
//
// # Naming
//
// Identifiers are zero-padded to 6 digits and given the ".flac" extension.
// The helpers SampleFileName, SamplePath and SampleURL are pure functions
// and can be used without building a Sample.
package model
