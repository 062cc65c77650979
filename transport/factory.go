package transport

import (
	terrors "github.com/vinayprograms/transportkit/errors"
)

// Config selects and configures one provider. Only the section matching
// Kind is read.
type Config struct {
	Kind        Kind
	Dummy       *DummyConfig
	PostMessage *PostMessageConfig
	WebSocket   *WebSocketConfig
}

// New creates the provider named by cfg.Kind.
func New(cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Kind {
	case KindDummy:
		p, err = NewDummyProvider(cfg.Dummy)
	case KindPostMessage:
		p, err = NewPostMessageProvider(cfg.PostMessage)
	case KindWebSocket:
		p, err = NewWebSocketProvider(cfg.WebSocket)
	case "":
		return nil, terrors.New(terrors.ErrCodeInvalidConfig, "transport kind is required")
	default:
		return nil, terrors.New(terrors.ErrCodeInvalidConfig, "unknown transport kind",
			terrors.WithMetadata("kind", string(cfg.Kind)))
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
