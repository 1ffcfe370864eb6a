// ABOUTME: Sentinel errors and the Error wrapper classifying stream failures.
// ABOUTME: Enables errors.Is/errors.As assertions instead of string matching.
package stream

import (
	"errors"
	"fmt"
)

// Sentinel errors for stream failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrTransport indicates the byte source failed: a dropped connection,
	// a request error, or a non-success status at handshake time.
	ErrTransport = errors.New("transport failure")

	// ErrFraming indicates a record boundary problem, such as a record
	// exceeding the configured size limit.
	ErrFraming = errors.New("framing failure")

	// ErrDecode indicates a single record failed schema validation.
	// Always local to one record; the stream continues past it.
	ErrDecode = errors.New("record decode failure")

	// ErrTimeout indicates no data arrived within the configured
	// inactivity bound.
	ErrTimeout = errors.New("stream timed out")
)

// Error wraps an underlying failure with stream classification.
// It preserves the original error in the chain for inspection via errors.As.
type Error struct {
	// Kind is the sentinel error for classification (e.g., ErrDecode).
	Kind error
	// Op is the operation that failed (e.g., "read", "decode", "handshake").
	Op string
	// Raw is the offending record text, decode failures only.
	Raw string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("%s: %v: %v (record %q)", e.Op, e.Kind, e.Err, e.Raw)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the underlying error for errors.As traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's classification.
// Supports errors.Is(err, ErrTransport) style checks.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}
