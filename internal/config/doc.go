// Package config provides configuration management for the downloader.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from a config file, a .env file and SLS_* variables
//   - Saving settings back to a file
//   - Conversion to model.PathConfig
//
// # Default Settings
//
// Use DefaultSettings() to get the default layout, relative to the working directory:
//
//	settings := config.DefaultSettings()
//	// Reads ../data/metadata.parquet
//	// Downloads to ../data/audio_files
//	// Logs to ../logs/downloader.log
//	// One download at a time
//
// # Loading
//
//	settings, err := config.Load("config.yaml")
//	if err != nil {
//	    // Invalid file or invalid values; a missing file yields defaults
//	}
//
// Any key can be overridden from the environment by upper-casing it and
// adding the SLS_ prefix:
//
//	SLS_BASE_URL=https://mirror.example.com/sls/v1
//	SLS_MAX_CONCURRENT_DOWNLOADS=4
//
// # Saving Settings
//
//	settings.TargetPath = "/srv/sls"
//	err := settings.Save("config.yaml")
package config
