package endpoint

import (
	"bytes"
	"sync"

	"github.com/eapache/queue"
)

// MessageChannel is a pair of entangled in-memory ports. Data posted on one
// port is delivered asynchronously, in order, to the listeners of the other.
type MessageChannel struct {
	Port1 *Port
	Port2 *Port
}

// NewMessageChannel creates a channel and starts both ports' dispatchers.
func NewMessageChannel() *MessageChannel {
	p1, p2 := newPort(), newPort()
	p1.peer, p2.peer = p2, p1

	go p1.dispatchLoop()
	go p2.dispatchLoop()

	return &MessageChannel{Port1: p1, Port2: p2}
}

// Close closes both ports.
func (c *MessageChannel) Close() error {
	c.Port1.Close()
	c.Port2.Close()
	return nil
}

// Port is one side of a MessageChannel.
type Port struct {
	Listeners

	peer *Port

	mu     sync.Mutex
	inbox  *queue.Queue
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

var _ Endpoint = (*Port)(nil)

func newPort() *Port {
	return &Port{
		inbox: queue.New(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// PostMessage queues data for the peer port. Byte slices are copied so the
// caller may reuse its buffer.
func (p *Port) PostMessage(data any) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if b, ok := data.([]byte); ok {
		data = bytes.Clone(b)
	}
	return p.peer.enqueue(data)
}

// Pending returns the number of messages queued for this port's listeners.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inbox.Length()
}

// Close stops delivery to this port and rejects further posts from it.
// Messages still queued are discarded.
func (p *Port) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
}

func (p *Port) enqueue(data any) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.inbox.Add(data)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// next pops the oldest queued message.
func (p *Port) next() (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.inbox.Length() == 0 {
		return nil, false
	}
	return p.inbox.Remove(), true
}

// dispatchLoop delivers queued messages. Messages that arrive while the
// port has no listeners are dropped.
func (p *Port) dispatchLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		for {
			data, ok := p.next()
			if !ok {
				break
			}
			p.Dispatch(data)
		}
	}
}
