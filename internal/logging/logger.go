// Package logging builds the zap logger used by the downloader.
//
// Log lines are appended to <dir>/downloader.log and, optionally, mirrored
// to stderr. The file keeps every run, so a failed run can be diagnosed
// after the process has exited.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFileName is the log file created inside the log directory.
const DefaultFileName = "downloader.log"

// Options configures New.
type Options struct {
	// Dir is the directory holding the log file. Created if missing.
	Dir string

	// FileName defaults to DefaultFileName.
	FileName string

	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Console mirrors log lines to stderr.
	Console bool
}

// New creates a logger writing to the log file described by opts.
//
// The returned cleanup function flushes buffered entries and closes the
// file; call it before the process exits.
func New(opts Options) (*zap.Logger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := opts.FileName
	if name == "" {
		name = DefaultFileName
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(), zapcore.AddSync(f), level),
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(newEncoder(), zapcore.Lock(os.Stderr), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))

	cleanup := func() {
		_ = logger.Sync()
		_ = f.Close()
	}

	return logger, cleanup, nil
}

// ParseLevel converts a level name into a zap level. An empty name yields info.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}

	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: valid levels are debug, info, warn, error", name)
	}
	return level, nil
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
