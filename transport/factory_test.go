package transport

import (
	"testing"

	"github.com/vinayprograms/transportkit/endpoint"
	terrors "github.com/vinayprograms/transportkit/errors"
)

func TestNew(t *testing.T) {
	ch := endpoint.NewMessageChannel()
	defer ch.Close()

	tests := []struct {
		name     string
		cfg      Config
		wantType string
		wantCode terrors.ErrorCode
	}{
		{
			name: "dummy",
			cfg: Config{Kind: KindDummy, Dummy: &DummyConfig{
				OnDisconnect: func() {},
				OnError:      func(error) {},
			}},
			wantType: "*transport.DummyProvider",
		},
		{
			name:     "postmessage",
			cfg:      Config{Kind: KindPostMessage, PostMessage: &PostMessageConfig{Endpoint: ch.Port1}},
			wantType: "*transport.PostMessageProvider",
		},
		{
			name:     "websocket",
			cfg:      Config{Kind: KindWebSocket, WebSocket: &WebSocketConfig{Server: "ws://localhost:1"}},
			wantType: "*transport.WebSocketProvider",
		},
		{
			name:     "section missing",
			cfg:      Config{Kind: KindWebSocket},
			wantCode: terrors.ErrCodeInvalidConfig,
		},
		{
			name:     "no kind",
			cfg:      Config{},
			wantCode: terrors.ErrCodeInvalidConfig,
		},
		{
			name:     "unknown kind",
			cfg:      Config{Kind: "carrier-pigeon"},
			wantCode: terrors.ErrCodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantCode != "" {
				if !terrors.Is(err, tt.wantCode) {
					t.Errorf("err = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := typeName(p); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *DummyProvider:
		return "*transport.DummyProvider"
	case *PostMessageProvider:
		return "*transport.PostMessageProvider"
	case *WebSocketProvider:
		return "*transport.WebSocketProvider"
	}
	return "unknown"
}
