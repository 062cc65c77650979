package errors

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// ProviderError is the interface for all structured errors raised by
// transport providers and endpoints.
type ProviderError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for handling decisions.
	Category() ErrorCategory

	// Retryable returns true if the operation may succeed on retry.
	Retryable() bool

	// Provider names the provider kind that raised the error, if any.
	Provider() string

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of ProviderError.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool // nil means use default based on category
	timestamp time.Time
	provider  string
}

var (
	_ ProviderError  = (*Error)(nil)
	_ json.Marshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.message
	if e.provider != "" {
		msg = e.provider + ": " + msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Provider returns the provider kind that raised the error.
func (e *Error) Provider() string {
	return e.provider
}

// Message returns the message without provider prefix or cause.
func (e *Error) Message() string {
	return e.message
}

// Metadata returns a copy of the error metadata.
func (e *Error) Metadata() map[string]string {
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

type errorJSON struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Retryable bool              `json:"retryable"`
	Timestamp string            `json:"timestamp,omitempty"`
	Provider  string            `json:"provider,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Metadata:  e.metadata,
		Retryable: e.Retryable(),
		Provider:  e.provider,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithProvider records the provider kind that raised the error.
func WithProvider(provider string) Option {
	return func(e *Error) {
		e.provider = provider
	}
}

// WithTimestamp sets a custom timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) {
		e.timestamp = t
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// InvalidConfig creates a configuration error for the given provider.
func InvalidConfig(provider, message string, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider)}, opts...)
	return New(ErrCodeInvalidConfig, message, opts...)
}

// TypeMismatch creates a return type mismatch error.
func TypeMismatch(provider, message string, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider)}, opts...)
	return New(ErrCodeTypeMismatch, message, opts...)
}

// NotConnected creates an error for operations that need an open connection.
func NotConnected(provider string, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider)}, opts...)
	return New(ErrCodeNotConnected, "not connected", opts...)
}

// Transport wraps a failure of the underlying channel.
func Transport(provider, message string, cause error, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider), WithCause(cause)}, opts...)
	return New(ErrCodeTransport, message, opts...)
}

// Serialization wraps a serializer or deserializer failure.
func Serialization(provider, message string, cause error, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider), WithCause(cause)}, opts...)
	return New(ErrCodeSerialization, message, opts...)
}
