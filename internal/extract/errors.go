package extract

import (
	"errors"
	"fmt"
)

// ErrorKind classifies extraction-service failures.
type ErrorKind string

const (
	KindRateLimit   ErrorKind = "rate_limit"
	KindUnavailable ErrorKind = "unavailable"
	KindTimeout     ErrorKind = "timeout"
	KindAuth        ErrorKind = "auth"
	KindBadRequest  ErrorKind = "bad_request"
)

// TransientError is a failure expected to resolve with retry.
type TransientError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s: %v", e.Kind, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError is a failure that will not resolve with retry.
type FatalError struct {
	Kind ErrorKind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether an error is worth retrying.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// ChunkError wraps the last observed error for one specific chunk, after
// retries were exhausted or a fatal error was seen.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d failed: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
