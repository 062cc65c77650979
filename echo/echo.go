// Package echo serves a WebSocket endpoint that writes every frame back to
// its sender. It is the peer for the WebSocket provider's examples and
// integration tests.
package echo

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sourcegraph/conc"

	"github.com/vinayprograms/transportkit/logging"
)

// Options configures a Handler.
type Options struct {
	// Subprotocols the server is willing to select, in preference order.
	Subprotocols []string

	// IdleTimeout closes a connection after this long without a frame.
	// 0 = no limit.
	IdleTimeout time.Duration

	// InsecureSkipVerify disables the Origin check.
	InsecureSkipVerify bool

	Logger *logging.Logger
}

// Handler accepts WebSocket upgrades and echoes frames with their original
// message type.
type Handler struct {
	opts Options
	log  *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates an echo handler.
func NewHandler(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		opts:   opts,
		log:    log.WithComponent("echo"),
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       h.opts.Subprotocols,
		InsecureSkipVerify: h.opts.InsecureSkipVerify,
	})
	if err != nil {
		h.log.Warn("upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	remote := r.RemoteAddr
	started := h.track(conn, func() {
		defer h.untrack(conn)
		h.log.Info("client connected", map[string]interface{}{
			"remote":      remote,
			"subprotocol": conn.Subprotocol(),
		})
		err := h.serve(conn)
		h.log.Info("client disconnected", map[string]interface{}{
			"remote": remote,
			"reason": closeReason(err),
		})
	})
	if !started {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// serve echoes frames until the connection ends.
func (h *Handler) serve(conn *websocket.Conn) error {
	defer conn.CloseNow()

	for {
		ctx, cancel := h.readContext()
		typ, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			return err
		}

		if err := conn.Write(context.Background(), typ, data); err != nil {
			return err
		}
	}
}

// readContext bounds one read by IdleTimeout. The library closes the
// connection with StatusPolicyViolation when it expires.
func (h *Handler) readContext() (context.Context, context.CancelFunc) {
	if h.opts.IdleTimeout > 0 {
		return context.WithTimeout(context.Background(), h.opts.IdleTimeout)
	}
	return context.WithCancel(context.Background())
}

// track registers conn and starts serve on the wait group. It reports false
// once Shutdown has begun.
func (h *Handler) track(conn *websocket.Conn, serve func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		return false
	}
	h.conns[conn] = struct{}{}
	h.wg.Go(serve)
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Active returns the number of open connections.
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes all connections with StatusGoingAway and waits for their
// goroutines to finish, or for ctx to end.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.cancel()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		go c.Close(websocket.StatusGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeReason(err error) string {
	if status := websocket.CloseStatus(err); status != -1 {
		return status.String()
	}
	return err.Error()
}
