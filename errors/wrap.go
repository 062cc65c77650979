package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a ProviderError, the wrapper keeps its code and provider.
// Context errors map to TIMEOUT and CANCELED; anything else becomes INTERNAL.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var provErr *Error
	if errors.As(err, &provErr) {
		wrapped := &Error{
			code:      provErr.code,
			category:  provErr.category,
			message:   message,
			cause:     err,
			metadata:  provErr.Metadata(),
			retryable: provErr.retryable,
			timestamp: provErr.timestamp,
			provider:  provErr.provider,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsProviderError extracts a ProviderError from an error chain.
// Returns nil if none is found.
func AsProviderError(err error) ProviderError {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr
	}
	return nil
}

// Is checks if the nearest ProviderError in the chain has the given code.
func Is(err error, code ErrorCode) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.code == code
	}
	return false
}

// IsCategory checks if the nearest ProviderError in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
// Errors outside this taxonomy are never retryable.
func IsRetryable(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Retryable()
	}
	return false
}

// Code extracts the error code from an error, if available.
func Code(err error) ErrorCode {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.code
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}
