// Package errors provides the structured error taxonomy shared by the
// transport providers and message endpoints in transportkit.
//
// # Error Categories
//
//   - Transient: the underlying channel failed (dial refused, reset, publish error)
//   - Permanent: retrying will not help (bad configuration, unserializable message)
//   - Internal: a configured value resolved to an unexpected type
//
// # Error Codes
//
//   - INVALID_CONFIG: required field missing or malformed, raised at construction
//   - TYPE_MISMATCH: a Dummy provider return value has a disallowed type
//   - TRANSPORT: native socket or endpoint failure
//   - NOT_CONNECTED: Send without an open connection
//   - SERIALIZATION: serializer or deserializer failure
//   - And more...
//
// # Usage
//
//	err := errors.InvalidConfig("websocket", "server is required")
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // fix configuration
//	}
//
// Nothing in transportkit retries automatically; Retryable is advisory for
// the consuming RPC layer.
package errors
