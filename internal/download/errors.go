package download

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed sample download.
type ErrorKind int

const (
	// KindTransport means the request could not be completed: DNS, connect,
	// TLS, timeout, or a broken body.
	KindTransport ErrorKind = iota + 1

	// KindStorage means the target directory or the sample file could not
	// be written.
	KindStorage

	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStorage:
		return "storage"
	case KindHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// ErrUnexpectedStatus is the cause of every KindHTTPStatus error.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// Error describes the failure that aborted a run.
type Error struct {
	Kind ErrorKind

	// SampleID is the identifier being processed, -1 when the failure is
	// not tied to a sample (target directory creation).
	SampleID int

	URL        string
	Path       string
	StatusCode int

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("%s: downloading %s: %v", e.Kind, e.URL, e.Cause)
	case KindHTTPStatus:
		return fmt.Sprintf("%s: downloading %s: HTTP %d", e.Kind, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s: writing %s: %v", e.Kind, e.Path, e.Cause)
	}
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err wraps an *Error of one of kinds.
func IsKind(err error, kinds ...ErrorKind) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	for _, k := range kinds {
		if de.Kind == k {
			return true
		}
	}
	return false
}
