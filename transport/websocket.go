package transport

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	terrors "github.com/vinayprograms/transportkit/errors"
	"github.com/vinayprograms/transportkit/logging"
)

// DefaultReconnectAfter is the default reconnect delay.
const DefaultReconnectAfter = 5 * time.Second

// ReadyState mirrors the WebSocket connection states.
type ReadyState int32

const (
	StateClosed ReadyState = iota
	StateConnecting
	StateOpen
	StateClosing
)

// String returns the state name.
func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// WebSocketConfig configures a WebSocketProvider.
type WebSocketConfig struct {
	// Server is the ws:// or wss:// URL to connect to. Required.
	Server string

	// Reconnect and ReconnectAfter are accepted and exposed, but no
	// reconnection is attempted. ReconnectAfter 0 = default.
	// Default: false, 5s
	Reconnect      bool
	ReconnectAfter time.Duration

	// Protocols are the requested subprotocols. Copied at construction.
	Protocols []string

	// Header is sent with the opening handshake.
	Header http.Header

	// TLSClientConfig for wss connections (nil = defaults).
	TLSClientConfig *tls.Config

	// OnMessage receives deserialized inbound messages. Optional.
	OnMessage MessageHandler

	// Serializer must produce a string or []byte. Default: Identity.
	Serializer Serializer

	// Deserializer receives text frames as string and binary frames as []byte.
	// Default: Identity.
	Deserializer Deserializer

	// HandshakeTimeout bounds the opening handshake.
	// Default: 45s
	HandshakeTimeout time.Duration

	// WriteTimeout for each outbound frame (0 = default).
	// Default: 10s
	WriteTimeout time.Duration

	// CloseTimeout bounds the wait for the peer's close frame on Disconnect
	// (0 = default).
	// Default: 1s
	CloseTimeout time.Duration

	// MaxMessageSize limits incoming message size.
	// Default: 1MB
	MaxMessageSize int64

	Logger *logging.Logger
}

// DefaultWebSocketConfig returns configuration with sensible defaults for
// the given server.
func DefaultWebSocketConfig(server string) WebSocketConfig {
	return WebSocketConfig{
		Server:           server,
		ReconnectAfter:   DefaultReconnectAfter,
		HandshakeTimeout: 45 * time.Second,
		WriteTimeout:     10 * time.Second,
		CloseTimeout:     time.Second,
		MaxMessageSize:   1024 * 1024, // 1MB
	}
}

// WebSocketProvider bridges Provider onto a client WebSocket connection.
type WebSocketProvider struct {
	handlers

	config       WebSocketConfig
	dialer       *websocket.Dialer
	serializer   Serializer
	deserializer Deserializer
	log          *logging.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    ReadyState
	closing  bool
	readDone chan struct{}

	writeMu sync.Mutex

	// delivering is set while the read loop runs a message or error handler.
	delivering atomic.Bool
}

var _ Provider = (*WebSocketProvider)(nil)

// NewWebSocketProvider validates cfg and creates a WebSocketProvider.
// No connection is made until Connect.
func NewWebSocketProvider(cfg *WebSocketConfig) (*WebSocketProvider, error) {
	if cfg == nil {
		return nil, terrors.InvalidConfig(string(KindWebSocket), "missing configuration")
	}
	if cfg.Server == "" {
		return nil, terrors.InvalidConfig(string(KindWebSocket), "server is required")
	}
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return nil, terrors.InvalidConfig(string(KindWebSocket), "server is not a valid URL", terrors.WithCause(err))
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, terrors.InvalidConfig(string(KindWebSocket), "server must use ws or wss scheme",
			terrors.WithMetadata("scheme", u.Scheme))
	}
	if cfg.ReconnectAfter < 0 || cfg.HandshakeTimeout < 0 || cfg.WriteTimeout < 0 ||
		cfg.CloseTimeout < 0 || cfg.MaxMessageSize < 0 {
		return nil, terrors.InvalidConfig(string(KindWebSocket), "timeouts and sizes must not be negative")
	}

	c := *cfg
	defaults := DefaultWebSocketConfig(c.Server)
	if c.ReconnectAfter == 0 {
		c.ReconnectAfter = defaults.ReconnectAfter
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = defaults.CloseTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	c.Protocols = slices.Clone(cfg.Protocols)
	if c.Protocols == nil {
		c.Protocols = []string{}
	}
	c.Header = cfg.Header.Clone()

	p := &WebSocketProvider{
		config: c,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.HandshakeTimeout,
			Subprotocols:     c.Protocols,
			TLSClientConfig:  c.TLSClientConfig,
		},
		serializer:   serializerOrIdentity(c.Serializer),
		deserializer: deserializerOrIdentity(c.Deserializer),
		log:          orNop(c.Logger, KindWebSocket).WithField("server", c.Server),
		state:        StateClosed,
	}
	p.handlers.init(c.OnMessage, nil, nil)

	return p, nil
}

// Server returns the configured server URL.
func (p *WebSocketProvider) Server() string {
	return p.config.Server
}

// Protocols returns a copy of the requested subprotocols.
func (p *WebSocketProvider) Protocols() []string {
	return slices.Clone(p.config.Protocols)
}

// Reconnect returns the reconnect settings. They are informational only.
func (p *WebSocketProvider) Reconnect() (bool, time.Duration) {
	return p.config.Reconnect, p.config.ReconnectAfter
}

// ReadyState returns the live connection state.
func (p *WebSocketProvider) ReadyState() ReadyState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subprotocol returns the subprotocol selected by the server, or "" when
// not connected or none was selected.
func (p *WebSocketProvider) Subprotocol() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return ""
	}
	return p.conn.Subprotocol()
}

// Connect opens a socket to the server. It returns once the handshake
// completes, or with the dial error. Closes at any later point, solicited
// or not, invoke the disconnect handler.
func (p *WebSocketProvider) Connect(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, KindWebSocket, "connect",
		attribute.String("ws.server", p.config.Server),
		attribute.StringSlice("ws.protocols", p.config.Protocols),
	)
	defer func() { endSpan(span, err) }()

	p.mu.Lock()
	if p.state == StateConnecting || p.state == StateOpen {
		state := p.state
		p.mu.Unlock()
		return terrors.New(terrors.ErrCodePrecondition, "already "+state.String(),
			terrors.WithProvider(string(KindWebSocket)))
	}
	p.state = StateConnecting
	p.mu.Unlock()

	conn, _, dialErr := p.dialer.DialContext(ctx, p.config.Server, p.config.Header)
	if dialErr != nil {
		p.mu.Lock()
		p.state = StateClosed
		p.mu.Unlock()

		err = terrors.Transport(string(KindWebSocket), "connect", dialErr,
			terrors.WithMetadata("server", p.config.Server))
		p.log.ConnectFailed(string(KindWebSocket), p.config.Server, dialErr)
		return err
	}

	conn.SetReadLimit(p.config.MaxMessageSize)
	done := make(chan struct{})

	p.mu.Lock()
	p.conn = conn
	p.state = StateOpen
	p.closing = false
	p.readDone = done
	p.mu.Unlock()

	span.SetAttributes(attribute.String("ws.subprotocol", conn.Subprotocol()))
	p.log.Connected(string(KindWebSocket), p.config.Server)

	go p.readLoop(conn, done)

	return nil
}

// Send serializes req and writes it as a text frame. It fails with a
// NOT_CONNECTED error unless the socket is open.
func (p *WebSocketProvider) Send(req any) error {
	p.mu.Lock()
	conn, state := p.conn, p.state
	p.mu.Unlock()

	if state != StateOpen || conn == nil {
		return terrors.NotConnected(string(KindWebSocket))
	}

	data, err := p.serializer(req)
	if err != nil {
		return terrors.Serialization(string(KindWebSocket), "serialize message", err)
	}

	var frame []byte
	switch v := data.(type) {
	case string:
		frame = []byte(v)
	case []byte:
		frame = v
	default:
		return terrors.New(terrors.ErrCodeUnsupported, "serializer must produce string or []byte",
			terrors.WithProvider(string(KindWebSocket)),
			terrors.WithCategory(terrors.CategoryPermanent))
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		p.log.SendFailed(string(KindWebSocket), err)
		return terrors.Transport(string(KindWebSocket), "write message", err)
	}
	return nil
}

// Disconnect performs the close handshake and waits until the read loop has
// finished, which includes running the disconnect handler. If the peer does
// not answer within CloseTimeout, or ctx ends first, the connection is
// closed without waiting further. It is a no-op unless the socket is open.
//
// Called from a message or error handler, Disconnect sends the close frame
// and returns at once; the disconnect handler runs after the calling
// handler returns.
func (p *WebSocketProvider) Disconnect(ctx context.Context) (err error) {
	p.mu.Lock()
	conn, done := p.conn, p.readDone
	if p.state != StateOpen || conn == nil {
		p.mu.Unlock()
		return nil
	}
	p.state = StateClosing
	p.closing = true
	p.mu.Unlock()

	ctx, span := startSpan(ctx, KindWebSocket, "disconnect", attribute.String("ws.server", p.config.Server))
	defer func() { endSpan(span, err) }()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if werr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(p.config.CloseTimeout)); werr != nil {
		conn.Close()
	}

	// The read loop is blocked in the handler that called us.
	if p.delivering.Load() {
		go p.closeAfter(conn, done)
		return nil
	}

	timer := time.NewTimer(p.config.CloseTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		conn.Close()
	case <-ctx.Done():
		conn.Close()
		return terrors.Wrap(ctx.Err(), "disconnect", terrors.WithProvider(string(KindWebSocket)))
	}
	return nil
}

// closeAfter force-closes conn if the read loop has not ended within
// CloseTimeout.
func (p *WebSocketProvider) closeAfter(conn *websocket.Conn, done <-chan struct{}) {
	timer := time.NewTimer(p.config.CloseTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		conn.Close()
	}
}

// IsConnected reports whether the socket is open.
func (p *WebSocketProvider) IsConnected() bool {
	return p.ReadyState() == StateOpen
}

// OnMessage implements Provider.
func (p *WebSocketProvider) OnMessage(h MessageHandler) { p.setMessage(h) }

// OnDisconnect implements Provider.
func (p *WebSocketProvider) OnDisconnect(h DisconnectHandler) { p.setDisconnect(h) }

// OnError implements Provider.
func (p *WebSocketProvider) OnError(h ErrorHandler) { p.setError(h) }

// readLoop delivers inbound frames until the connection ends.
func (p *WebSocketProvider) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			p.handleClose(conn, err)
			return
		}

		var payload any = data
		if typ == websocket.TextMessage {
			payload = string(data)
		}

		msg, derr := p.deserializer(payload)
		if derr != nil {
			derr = terrors.Serialization(string(KindWebSocket), "deserialize message", derr)
			p.log.DeliveryFailed(string(KindWebSocket), derr)
			p.deliver(func() { p.emitError(derr) })
			continue
		}
		p.deliver(func() { p.emitMessage(msg) })
	}
}

func (p *WebSocketProvider) deliver(fn func()) {
	p.delivering.Store(true)
	defer p.delivering.Store(false)
	fn()
}

// handleClose records the closed state and invokes the handlers.
func (p *WebSocketProvider) handleClose(conn *websocket.Conn, readErr error) {
	conn.Close()

	p.mu.Lock()
	solicited := p.closing
	if p.conn == conn {
		p.conn = nil
		p.state = StateClosed
		p.closing = false
	}
	p.mu.Unlock()

	if !solicited && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		p.emitError(terrors.Transport(string(KindWebSocket), "connection lost", readErr))
	}

	p.log.Disconnected(string(KindWebSocket), p.config.Server, solicited)
	p.emitDisconnect()
}
