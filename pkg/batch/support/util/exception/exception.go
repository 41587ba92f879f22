// Package exception provides the error type shared by the batch framework and the pipeline.
// Every failure that leaves a component is a *BatchError carrying the module it came from,
// so job and step listeners can report where a run broke.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrResourceAcquisition marks failures to obtain a database connection, a storage
	// connection or an output object. These abort the job.
	ErrResourceAcquisition = errors.New("resource acquisition failed")
	// ErrInvalidConfiguration marks configuration that cannot drive a run.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// BatchError is the error type raised during batch processing.
type BatchError struct {
	// Module indicates where the error occurred (e.g. "loader", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// Optional trailing arguments are consumed from the end in this order:
// [originalErr error], then [isRetryable bool], then [isSkippable bool].
// The remaining arguments are passed to fmt.Sprintf.
//
//	NewBatchErrorf("loader", "query on %s failed", "videos", err)
//	-> message "query on videos failed", originalErr err, not skippable, not retryable
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	var isRetryable, isSkippable bool
	args := a

	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok {
			originalErr = err
			args = args[:n-1]
		}
	}
	if n := len(args); n > 0 {
		if b, ok := args[n-1].(bool); ok {
			isRetryable = b
			args = args[:n-1]
		}
	}
	if n := len(args); n > 0 {
		if b, ok := args[n-1].(bool); ok {
			isSkippable = b
			args = args[:n-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewResourceError wraps a failure to acquire an external resource.
func NewResourceError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, joinSentinel(ErrResourceAcquisition, cause), false, false)
}

// NewConfigurationError reports configuration that cannot drive a run.
func NewConfigurationError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, joinSentinel(ErrInvalidConfiguration, cause), false, false)
}

func joinSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err, or any error it wraps, is a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsFatal determines if an error can neither be retried nor skipped.
// Plain errors are classified by well-known message fragments.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "data corruption")
}

// IsResourceFailure reports whether err stems from resource acquisition.
func IsResourceFailure(err error) bool {
	return errors.Is(err, ErrResourceAcquisition)
}

// IsConfigurationFailure reports whether err stems from invalid configuration.
func IsConfigurationFailure(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// ExtractErrorMessage returns the Message of a BatchError, or Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
