package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates failures of the underlying channel where a
	// later attempt may succeed.
	// Examples: dial refused, connection reset, endpoint publish failure.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: missing server address, unserializable message.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors or misuse of test doubles.
	// Examples: a configured return value of the wrong type.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for provider failures.
const (
	// Transient errors
	ErrCodeTransport    ErrorCode = "TRANSPORT"     // Underlying channel failed
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED" // Operation needs an open connection
	ErrCodeTimeout      ErrorCode = "TIMEOUT"       // Operation timed out

	// Permanent errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG" // Missing or malformed configuration
	ErrCodePrecondition  ErrorCode = "PRECONDITION"   // Provider in the wrong state
	ErrCodeSerialization ErrorCode = "SERIALIZATION"  // Serializer or deserializer failed
	ErrCodeUnsupported   ErrorCode = "UNSUPPORTED"    // Operation or payload not supported
	ErrCodeCanceled      ErrorCode = "CANCELED"       // Operation was canceled

	// Internal errors
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH" // Configured value resolved to a disallowed type
	ErrCodeInternal     ErrorCode = "INTERNAL"      // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTransport, ErrCodeNotConnected, ErrCodeTimeout:
		return CategoryTransient

	case ErrCodeInvalidConfig, ErrCodePrecondition, ErrCodeSerialization,
		ErrCodeUnsupported, ErrCodeCanceled:
		return CategoryPermanent

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeTransport:     "transport failure",
	ErrCodeNotConnected:  "not connected",
	ErrCodeTimeout:       "operation timed out",
	ErrCodeInvalidConfig: "invalid configuration",
	ErrCodePrecondition:  "precondition failed",
	ErrCodeSerialization: "serialization failed",
	ErrCodeUnsupported:   "operation not supported",
	ErrCodeCanceled:      "operation canceled",
	ErrCodeTypeMismatch:  "return type mismatch",
	ErrCodeInternal:      "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
