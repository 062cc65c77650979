package transport

import (
	"context"
	"sync"

	"github.com/vinayprograms/transportkit/endpoint"
	terrors "github.com/vinayprograms/transportkit/errors"
	"github.com/vinayprograms/transportkit/logging"
)

// PostMessageConfig configures a PostMessageProvider.
type PostMessageConfig struct {
	// Endpoint sends and receives messages. Required.
	Endpoint endpoint.Endpoint

	// OnMessage receives deserialized inbound messages. Optional.
	OnMessage MessageHandler

	// Serializer converts outbound messages. Default: Identity.
	Serializer Serializer

	// Deserializer converts inbound data. Default: Identity.
	Deserializer Deserializer

	Logger *logging.Logger
}

// PostMessageProvider bridges Provider onto a message endpoint. Being
// "connected" means a listener is bound to the endpoint; the peer itself may
// or may not be reachable.
type PostMessageProvider struct {
	handlers

	endpoint     endpoint.Endpoint
	serializer   Serializer
	deserializer Deserializer
	log          *logging.Logger

	mu         sync.Mutex
	bound      bool
	listenerID endpoint.ListenerID
}

var _ Provider = (*PostMessageProvider)(nil)

// NewPostMessageProvider validates cfg and creates a PostMessageProvider.
func NewPostMessageProvider(cfg *PostMessageConfig) (*PostMessageProvider, error) {
	if cfg == nil {
		return nil, terrors.InvalidConfig(string(KindPostMessage), "missing configuration")
	}
	if cfg.Endpoint == nil {
		return nil, terrors.InvalidConfig(string(KindPostMessage), "endpoint is required")
	}

	p := &PostMessageProvider{
		endpoint:     cfg.Endpoint,
		serializer:   serializerOrIdentity(cfg.Serializer),
		deserializer: deserializerOrIdentity(cfg.Deserializer),
		log:          orNop(cfg.Logger, KindPostMessage),
	}
	p.handlers.init(cfg.OnMessage, nil, nil)

	return p, nil
}

// Connect binds the message listener to the endpoint. It is a no-op when
// already bound.
func (p *PostMessageProvider) Connect(ctx context.Context) (err error) {
	_, span := startSpan(ctx, KindPostMessage, "connect")
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return terrors.Wrap(err, "connect", terrors.WithProvider(string(KindPostMessage)))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bound {
		return nil
	}
	p.listenerID = p.endpoint.AddMessageListener(p.handleEndpointMessage)
	p.bound = true
	p.log.Connected(string(KindPostMessage), "endpoint")

	return nil
}

// Send serializes req and posts it to the endpoint.
func (p *PostMessageProvider) Send(req any) error {
	data, err := p.serializer(req)
	if err != nil {
		return terrors.Serialization(string(KindPostMessage), "serialize message", err)
	}
	if err := p.endpoint.PostMessage(data); err != nil {
		p.log.SendFailed(string(KindPostMessage), err)
		return terrors.Transport(string(KindPostMessage), "post message", err)
	}
	return nil
}

// Disconnect unbinds the listener if bound. It never fails.
func (p *PostMessageProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.bound {
		return nil
	}
	p.endpoint.RemoveMessageListener(p.listenerID)
	p.bound = false
	p.listenerID = ""
	p.log.Disconnected(string(KindPostMessage), "endpoint", true)

	return nil
}

// IsConnected reports whether the listener is bound.
func (p *PostMessageProvider) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound
}

// OnMessage implements Provider.
func (p *PostMessageProvider) OnMessage(h MessageHandler) { p.setMessage(h) }

// OnDisconnect implements Provider. Endpoints have no close event, so the
// handler is stored but not invoked.
func (p *PostMessageProvider) OnDisconnect(h DisconnectHandler) { p.setDisconnect(h) }

// OnError implements Provider.
func (p *PostMessageProvider) OnError(h ErrorHandler) { p.setError(h) }

func (p *PostMessageProvider) handleEndpointMessage(data any) {
	msg, err := p.deserializer(data)
	if err != nil {
		err = terrors.Serialization(string(KindPostMessage), "deserialize message", err)
		p.log.DeliveryFailed(string(KindPostMessage), err)
		p.emitError(err)
		return
	}
	p.emitMessage(msg)
}
