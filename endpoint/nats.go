package endpoint

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS is an endpoint over a pair of NATS subjects: messages are published
// to PublishSubject and received from SubscribeSubject.
type NATS struct {
	Listeners

	conn   *nats.Conn
	owned  bool
	config NATSConfig
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

var _ Endpoint = (*NATS)(nil)

// NATSConfig holds NATS endpoint configuration.
type NATSConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for identification.
	Name string

	// Token for token-based auth.
	Token string

	// User and Password for basic auth.
	User     string
	Password string

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// MaxReconnects is the maximum number of reconnection attempts.
	// -1 = unlimited
	MaxReconnects int

	// ConnectTimeout for initial connection.
	ConnectTimeout time.Duration

	// PublishSubject receives outbound messages. Required.
	PublishSubject string

	// SubscribeSubject carries inbound messages. Required.
	SubscribeSubject string
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  -1,
		ConnectTimeout: 5 * time.Second,
	}
}

func (c NATSConfig) validate() error {
	if c.PublishSubject == "" {
		return errors.New("nats endpoint: publish subject is required")
	}
	if c.SubscribeSubject == "" {
		return errors.New("nats endpoint: subscribe subject is required")
	}
	return nil
}

// DialNATS connects to the server in cfg.URL and creates an endpoint that
// owns the connection.
func DialNATS(cfg NATSConfig) (*NATS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	conn, err := nats.Connect(cfg.URL, buildNATSOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	ep, err := NewNATS(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	ep.owned = true
	return ep, nil
}

// NewNATS creates an endpoint on an existing connection. The connection is
// left open by Close.
func NewNATS(conn *nats.Conn, cfg NATSConfig) (*NATS, error) {
	if conn == nil {
		return nil, errors.New("nats endpoint: connection is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ep := &NATS{
		conn:   conn,
		config: cfg,
	}

	sub, err := conn.Subscribe(cfg.SubscribeSubject, func(m *nats.Msg) {
		ep.Dispatch(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	ep.sub = sub

	return ep, nil
}

// buildNATSOptions constructs NATS connection options from config.
func buildNATSOptions(cfg NATSConfig) []nats.Option {
	opts := []nats.Option{
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

// PostMessage publishes data ([]byte or string) to the publish subject.
func (n *NATS) PostMessage(data any) error {
	b, err := toBytes(data)
	if err != nil {
		return err
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed || n.conn.IsClosed() {
		return ErrClosed
	}

	if err := n.conn.Publish(n.config.PublishSubject, b); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Conn returns the underlying NATS connection for advanced use.
func (n *NATS) Conn() *nats.Conn {
	return n.conn
}

// Close unsubscribes, and closes the connection if DialNATS opened it.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	var err error
	if !n.conn.IsClosed() {
		err = n.sub.Unsubscribe()
	}
	if n.owned {
		n.conn.Close()
	}
	return err
}
