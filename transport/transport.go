package transport

import (
	"context"
	"sync"

	"github.com/vinayprograms/transportkit/logging"
)

// Kind names a provider implementation.
type Kind string

const (
	KindDummy       Kind = "dummy"
	KindPostMessage Kind = "postmessage"
	KindWebSocket   Kind = "websocket"
)

// MessageHandler receives deserialized inbound messages.
type MessageHandler func(msg any)

// DisconnectHandler is invoked when the underlying channel closes.
type DisconnectHandler func()

// ErrorHandler receives failures that have no caller to return to.
type ErrorHandler func(err error)

// Serializer converts an application message to wire representation.
type Serializer func(msg any) (any, error)

// Deserializer converts wire representation to an application message.
type Deserializer func(data any) (any, error)

// Identity is the default Serializer and Deserializer: it returns its input.
func Identity(v any) (any, error) {
	return v, nil
}

// Provider is the contract shared by all transport providers.
type Provider interface {
	// Connect acquires the underlying resource. It returns once the channel
	// is usable, or with the error that prevented it.
	Connect(ctx context.Context) error

	// Send serializes msg and hands it to the channel. Delivery is not confirmed.
	Send(msg any) error

	// Disconnect releases the underlying resource.
	Disconnect(ctx context.Context) error

	// IsConnected reports the provider's view of the connection.
	IsConnected() bool

	// OnMessage replaces the inbound message handler. nil restores the no-op.
	OnMessage(h MessageHandler)

	// OnDisconnect replaces the disconnect handler. nil restores the no-op.
	OnDisconnect(h DisconnectHandler)

	// OnError replaces the error handler. nil restores the no-op.
	OnError(h ErrorHandler)
}

func noopMessage(any) {}
func noopDisconnect() {}
func noopError(error) {}

// handlers holds the replaceable callback slots. Handlers are read under the
// lock and invoked outside it.
type handlers struct {
	mu           sync.RWMutex
	onMessage    MessageHandler
	onDisconnect DisconnectHandler
	onError      ErrorHandler
}

func (h *handlers) init(m MessageHandler, d DisconnectHandler, e ErrorHandler) {
	h.setMessage(m)
	h.setDisconnect(d)
	h.setError(e)
}

func (h *handlers) setMessage(fn MessageHandler) {
	if fn == nil {
		fn = noopMessage
	}
	h.mu.Lock()
	h.onMessage = fn
	h.mu.Unlock()
}

func (h *handlers) setDisconnect(fn DisconnectHandler) {
	if fn == nil {
		fn = noopDisconnect
	}
	h.mu.Lock()
	h.onDisconnect = fn
	h.mu.Unlock()
}

func (h *handlers) setError(fn ErrorHandler) {
	if fn == nil {
		fn = noopError
	}
	h.mu.Lock()
	h.onError = fn
	h.mu.Unlock()
}

func (h *handlers) emitMessage(msg any) {
	h.mu.RLock()
	fn := h.onMessage
	h.mu.RUnlock()
	fn(msg)
}

func (h *handlers) emitDisconnect() {
	h.mu.RLock()
	fn := h.onDisconnect
	h.mu.RUnlock()
	fn()
}

func (h *handlers) emitError(err error) {
	h.mu.RLock()
	fn := h.onError
	h.mu.RUnlock()
	fn(err)
}

func serializerOrIdentity(fn Serializer) Serializer {
	if fn == nil {
		return Identity
	}
	return fn
}

func deserializerOrIdentity(fn Deserializer) Deserializer {
	if fn == nil {
		return Identity
	}
	return fn
}

func orNop(l *logging.Logger, kind Kind) *logging.Logger {
	if l == nil {
		return logging.Nop()
	}
	return l.WithComponent(string(kind))
}
