package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apple/ml-spatial-librispeech/internal/model"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding settings,
// e.g. SLS_BASE_URL or SLS_TARGET_PATH.
const EnvPrefix = "SLS"

// DefaultBaseURL is the root of the Spatial LibriSpeech v1 dataset.
const DefaultBaseURL = "https://docs-assets.developer.apple.com/ml-research/datasets/spatial-librispeech/v1"

// Settings holds all configuration options.
type Settings struct {
	// Metadata settings
	MetadataPath   string `json:"metadata_path" mapstructure:"metadata_path"`
	MetadataColumn string `json:"metadata_column" mapstructure:"metadata_column"`
	MetadataTable  string `json:"metadata_table" mapstructure:"metadata_table"` // sqlite sources only

	// Download settings
	TargetPath             string  `json:"target_path" mapstructure:"target_path"`
	BaseURL                string  `json:"base_url" mapstructure:"base_url"`
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads" mapstructure:"max_concurrent_downloads"`
	RequestTimeout         float64 `json:"request_timeout" mapstructure:"request_timeout"` // seconds, 0 = none
	UserAgent              string  `json:"user_agent" mapstructure:"user_agent"`
	AcceptAnyStatus        bool    `json:"accept_any_status" mapstructure:"accept_any_status"`
	AtomicWrites           bool    `json:"atomic_writes" mapstructure:"atomic_writes"`

	// Log settings
	LogDir      string `json:"log_dir" mapstructure:"log_dir"`
	LogLevel    string `json:"log_level" mapstructure:"log_level"`
	LogToStderr bool   `json:"log_to_stderr" mapstructure:"log_to_stderr"`

	// Playlist settings
	CreatePlaylist   bool   `json:"create_playlist" mapstructure:"create_playlist"`
	PlaylistFormat   string `json:"playlist_format" mapstructure:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended      bool   `json:"m3u_extended" mapstructure:"m3u_extended"`
	PlaylistFileName string `json:"playlist_file_name" mapstructure:"playlist_file_name"`

	// UI settings
	ShowProgress bool `json:"show_progress" mapstructure:"show_progress"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		MetadataPath:   filepath.Join("..", "data", "metadata.parquet"),
		MetadataColumn: "sample_id",
		MetadataTable:  "metadata",

		TargetPath:             filepath.Join("..", "data", "audio_files"),
		BaseURL:                DefaultBaseURL,
		MaxConcurrentDownloads: 1,
		RequestTimeout:         0,
		UserAgent:              "SpatialLibriSpeechDownloader",
		AcceptAnyStatus:        false,
		AtomicWrites:           true,

		LogDir:      filepath.Join("..", "logs"),
		LogLevel:    "info",
		LogToStderr: false,

		CreatePlaylist:   false,
		PlaylistFormat:   "m3u",
		M3UExtended:      true,
		PlaylistFileName: "spatial-librispeech",

		ShowProgress: true,
	}
}

// Load reads settings from a config file, a .env file and the environment.
//
// Precedence, highest first:
//   - SLS_* environment variables (a .env file in the working directory is
//     loaded into the environment first, without overriding existing vars)
//   - the config file at path (JSON, YAML or TOML by extension)
//   - DefaultSettings
//
// A missing config file is not an error; an empty path skips it.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

// newViper returns a viper instance seeded with every default, so that
// environment variables are honoured for all keys during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultSettings()
	v.SetDefault("metadata_path", d.MetadataPath)
	v.SetDefault("metadata_column", d.MetadataColumn)
	v.SetDefault("metadata_table", d.MetadataTable)
	v.SetDefault("target_path", d.TargetPath)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("max_concurrent_downloads", d.MaxConcurrentDownloads)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("accept_any_status", d.AcceptAnyStatus)
	v.SetDefault("atomic_writes", d.AtomicWrites)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_to_stderr", d.LogToStderr)
	v.SetDefault("create_playlist", d.CreatePlaylist)
	v.SetDefault("playlist_format", d.PlaylistFormat)
	v.SetDefault("m3u_extended", d.M3UExtended)
	v.SetDefault("playlist_file_name", d.PlaylistFileName)
	v.SetDefault("show_progress", d.ShowProgress)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Save writes settings to a config file. The format follows the file
// extension (.json, .yaml, .yml, .toml).
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("metadata_path", s.MetadataPath)
	v.Set("metadata_column", s.MetadataColumn)
	v.Set("metadata_table", s.MetadataTable)
	v.Set("target_path", s.TargetPath)
	v.Set("base_url", s.BaseURL)
	v.Set("max_concurrent_downloads", s.MaxConcurrentDownloads)
	v.Set("request_timeout", s.RequestTimeout)
	v.Set("user_agent", s.UserAgent)
	v.Set("accept_any_status", s.AcceptAnyStatus)
	v.Set("atomic_writes", s.AtomicWrites)
	v.Set("log_dir", s.LogDir)
	v.Set("log_level", s.LogLevel)
	v.Set("log_to_stderr", s.LogToStderr)
	v.Set("create_playlist", s.CreatePlaylist)
	v.Set("playlist_format", s.PlaylistFormat)
	v.Set("m3u_extended", s.M3UExtended)
	v.Set("playlist_file_name", s.PlaylistFileName)
	v.Set("show_progress", s.ShowProgress)

	return v.WriteConfigAs(path)
}

// Validate checks the settings and fills in defaults for zero values that
// have no meaningful zero.
func (s *Settings) Validate() error {
	if s.MetadataPath == "" {
		return errors.New("metadata_path is required")
	}
	if s.TargetPath == "" {
		return errors.New("target_path is required")
	}
	if s.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %v", s.RequestTimeout)
	}

	switch s.PlaylistFormat {
	case "m3u", "pls", "wpl", "zpl":
	default:
		return fmt.Errorf("invalid playlist_format %q: valid formats are m3u, pls, wpl, zpl", s.PlaylistFormat)
	}

	if s.MaxConcurrentDownloads <= 0 {
		s.MaxConcurrentDownloads = 1
	}
	if s.MetadataColumn == "" {
		s.MetadataColumn = "sample_id"
	}
	if s.MetadataTable == "" {
		s.MetadataTable = "metadata"
	}
	if s.LogDir == "" {
		s.LogDir = "."
	}
	if s.PlaylistFileName == "" {
		s.PlaylistFileName = "spatial-librispeech"
	}

	return nil
}

// Timeout returns RequestTimeout as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout * float64(time.Second))
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	return &model.PathConfig{
		TargetPath: s.TargetPath,
		BaseURL:    s.BaseURL,
	}
}
