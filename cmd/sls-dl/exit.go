package main

import (
	"context"
	"errors"

	"github.com/apple/ml-spatial-librispeech/internal/download"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitMetadata    = 3
	exitTransport   = 4
	exitHTTPStatus  = 5
	exitStorage     = 6
	exitInterrupted = 130
)

// codedError attaches an exit code to an error.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withCode(exitUsage, validate(cmd, args))
	}
}

// exitCode maps the error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}

	var de *download.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case download.KindTransport:
			return exitTransport
		case download.KindHTTPStatus:
			return exitHTTPStatus
		case download.KindStorage:
			return exitStorage
		}
	}

	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailure
}
