package transport

import (
	"context"
	"sync"
)

// Future is the deferred outcome of an operation.
type Future interface {
	// Await blocks until the outcome is settled or ctx is done.
	Await(ctx context.Context) (any, error)
}

// Deferred is a Future settled explicitly by Resolve or Reject.
// Only the first settlement counts.
type Deferred struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

var _ Future = (*Deferred)(nil)

// NewDeferred returns an unsettled Deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolved returns a Future already settled with v.
func Resolved(v any) Future {
	d := NewDeferred()
	d.Resolve(v)
	return d
}

// Rejected returns a Future already settled with err.
func Rejected(err error) Future {
	d := NewDeferred()
	d.Reject(err)
	return d
}

// Resolve settles the future with v.
func (d *Deferred) Resolve(v any) {
	d.once.Do(func() {
		d.value = v
		close(d.done)
	})
}

// Reject settles the future with err.
func (d *Deferred) Reject(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

// Done is closed once the future is settled.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Await implements Future.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	default:
	}

	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
