package endpoint

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

// StreamConfig holds Stream configuration.
type StreamConfig struct {
	// MaxLineSize limits a single inbound frame.
	// Default: 1MB
	MaxLineSize int
}

// DefaultStreamConfig returns configuration with sensible defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MaxLineSize: 1024 * 1024,
	}
}

// Stream is a newline-delimited endpoint over a reader/writer pair, such as
// a worker process's stdout/stdin. Inbound frames are dispatched as []byte.
type Stream struct {
	Listeners

	reader io.Reader
	writer io.Writer
	config StreamConfig

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ Endpoint = (*Stream)(nil)

// NewStream creates a stream endpoint. Call Run to start reading.
func NewStream(r io.Reader, w io.Writer, cfg StreamConfig) *Stream {
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultStreamConfig().MaxLineSize
	}

	return &Stream{
		reader: r,
		writer: w,
		config: cfg,
		done:   make(chan struct{}),
	}
}

// PostMessage writes data followed by a newline. Data must be []byte or
// string and must not contain a newline.
func (s *Stream) PostMessage(data any) error {
	b, err := toBytes(data)
	if err != nil {
		return err
	}
	if bytes.IndexByte(b, '\n') >= 0 {
		return ErrInvalidPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	frame := make([]byte, 0, len(b)+1)
	frame = append(frame, b...)
	frame = append(frame, '\n')
	_, err = s.writer.Write(frame)
	return err
}

// Run reads frames and dispatches them until EOF, ctx cancellation or Close.
// Cancellation and Close are noticed when the next frame arrives; a read
// blocked on the reader is not interrupted. Returns nil on EOF or shutdown
// and the read error otherwise.
func (s *Stream) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, min(64*1024, s.config.MaxLineSize)), s.config.MaxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		s.Dispatch(bytes.Clone(line))
	}

	return scanner.Err()
}

// Close stops dispatching and rejects further writes.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}
