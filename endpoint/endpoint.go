// Package endpoint provides message-passing endpoints for the PostMessage
// transport provider.
//
// An Endpoint is anything that can post a message to a peer and notify
// registered listeners of inbound messages: an in-memory MessageChannel port,
// a newline-delimited stream (a worker on stdin/stdout), or a NATS subject
// pair.
package endpoint

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Common errors.
var (
	ErrClosed             = errors.New("endpoint closed")
	ErrUnsupportedPayload = errors.New("unsupported payload type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

// Listener receives inbound message data.
type Listener func(data any)

// ListenerID identifies a registered listener for removal.
type ListenerID string

// Endpoint is a message-passing peer.
type Endpoint interface {
	// AddMessageListener registers l for inbound messages.
	AddMessageListener(l Listener) ListenerID

	// RemoveMessageListener unregisters a listener. Unknown IDs are ignored.
	RemoveMessageListener(id ListenerID)

	// PostMessage delivers data to the peer. Delivery is not confirmed.
	PostMessage(data any) error
}

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Listeners is an ordered listener registry that endpoint implementations embed.
// The zero value is ready to use.
type Listeners struct {
	mu      sync.RWMutex
	entries []listenerEntry
}

// AddMessageListener registers l and returns its ID.
func (ls *Listeners) AddMessageListener(l Listener) ListenerID {
	id := ListenerID(uuid.NewString())

	ls.mu.Lock()
	ls.entries = append(ls.entries, listenerEntry{id: id, fn: l})
	ls.mu.Unlock()

	return id
}

// RemoveMessageListener unregisters the listener with the given ID.
func (ls *Listeners) RemoveMessageListener(id ListenerID) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i, e := range ls.entries {
		if e.id == id {
			ls.entries = append(ls.entries[:i:i], ls.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (ls *Listeners) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.entries)
}

// Dispatch calls every listener in registration order. The set is
// snapshotted first, so listeners may add or remove listeners.
func (ls *Listeners) Dispatch(data any) {
	ls.mu.RLock()
	snapshot := make([]Listener, len(ls.entries))
	for i, e := range ls.entries {
		snapshot[i] = e.fn
	}
	ls.mu.RUnlock()

	for _, fn := range snapshot {
		fn(data)
	}
}
