package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/transportkit/endpoint"
	terrors "github.com/vinayprograms/transportkit/errors"
)

// recordingEndpoint captures posted messages and lets tests deliver inbound ones.
type recordingEndpoint struct {
	endpoint.Listeners

	mu      sync.Mutex
	posted  []any
	postErr error
}

func (e *recordingEndpoint) PostMessage(data any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.postErr != nil {
		return e.postErr
	}
	e.posted = append(e.posted, data)
	return nil
}

func (e *recordingEndpoint) Posted() []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]any(nil), e.posted...)
}

// --- Unit Tests ---

func TestPostMessage_RequiresEndpoint(t *testing.T) {
	if _, err := NewPostMessageProvider(nil); !terrors.Is(err, terrors.ErrCodeInvalidConfig) {
		t.Errorf("nil config err = %v, want INVALID_CONFIG", err)
	}
	if _, err := NewPostMessageProvider(&PostMessageConfig{}); !terrors.Is(err, terrors.ErrCodeInvalidConfig) {
		t.Errorf("missing endpoint err = %v, want INVALID_CONFIG", err)
	}
}

func TestPostMessage_ConnectBindsListener(t *testing.T) {
	ep := &recordingEndpoint{}
	var got []any
	p, err := NewPostMessageProvider(&PostMessageConfig{
		Endpoint:  ep,
		OnMessage: func(msg any) { got = append(got, msg) },
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if p.IsConnected() {
		t.Error("connected before Connect")
	}
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if ep.Len() != 1 {
		t.Errorf("listeners = %d, want 1", ep.Len())
	}

	ep.Dispatch("hello")
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("messages = %v, want [hello]", got)
	}

	if err := p.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := p.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if p.IsConnected() {
		t.Error("connected after Disconnect")
	}
	if ep.Len() != 0 {
		t.Errorf("listeners = %d after Disconnect, want 0", ep.Len())
	}

	ep.Dispatch("ignored")
	if len(got) != 1 {
		t.Error("message delivered after Disconnect")
	}
}

func TestPostMessage_ConnectCanceled(t *testing.T) {
	p, _ := NewPostMessageProvider(&PostMessageConfig{Endpoint: &recordingEndpoint{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Connect(ctx); err == nil {
		t.Error("Connect with canceled context should fail")
	}
	if p.IsConnected() {
		t.Error("connected after canceled Connect")
	}
}

func TestPostMessage_SendSerializes(t *testing.T) {
	ep := &recordingEndpoint{}
	p, _ := NewPostMessageProvider(&PostMessageConfig{
		Endpoint:   ep,
		Serializer: func(msg any) (any, error) { return map[string]any{"wrapped": msg}, nil },
	})

	// Send does not require Connect.
	if err := p.Send("ping"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	posted := ep.Posted()
	if len(posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(posted))
	}
	if m, ok := posted[0].(map[string]any); !ok || m["wrapped"] != "ping" {
		t.Errorf("posted %v, want wrapped ping", posted[0])
	}
}

func TestPostMessage_SendErrors(t *testing.T) {
	ep := &recordingEndpoint{}
	p, _ := NewPostMessageProvider(&PostMessageConfig{
		Endpoint:   ep,
		Serializer: func(any) (any, error) { return nil, errors.New("bad") },
	})
	if err := p.Send(1); !terrors.Is(err, terrors.ErrCodeSerialization) {
		t.Errorf("err = %v, want SERIALIZATION", err)
	}

	ep.postErr = endpoint.ErrClosed
	p, _ = NewPostMessageProvider(&PostMessageConfig{Endpoint: ep})
	err := p.Send(1)
	if !terrors.Is(err, terrors.ErrCodeTransport) {
		t.Errorf("err = %v, want TRANSPORT", err)
	}
	if !errors.Is(err, endpoint.ErrClosed) {
		t.Error("cause should be ErrClosed")
	}
}

func TestPostMessage_DeserializeError(t *testing.T) {
	ep := &recordingEndpoint{}
	var msgs int
	var errs []error
	p, _ := NewPostMessageProvider(&PostMessageConfig{
		Endpoint:     ep,
		OnMessage:    func(any) { msgs++ },
		Deserializer: func(any) (any, error) { return nil, errors.New("garbled") },
	})
	p.OnError(func(err error) { errs = append(errs, err) })
	p.Connect(context.Background())

	ep.Dispatch("???")

	if msgs != 0 {
		t.Error("OnMessage called for undecodable data")
	}
	if len(errs) != 1 || !terrors.Is(errs[0], terrors.ErrCodeSerialization) {
		t.Errorf("errors = %v, want one SERIALIZATION", errs)
	}
}

// --- Integration Tests ---

func TestPostMessage_MessageChannelRoundTrip(t *testing.T) {
	ch := endpoint.NewMessageChannel()
	defer ch.Close()

	received := make(chan any, 1)
	client, _ := NewPostMessageProvider(&PostMessageConfig{
		Endpoint:  ch.Port1,
		OnMessage: func(msg any) { received <- msg },
	})
	server, _ := NewPostMessageProvider(&PostMessageConfig{Endpoint: ch.Port2})
	server.OnMessage(func(msg any) { server.Send(msg) })

	ctx := context.Background()
	client.Connect(ctx)
	server.Connect(ctx)
	defer client.Disconnect(ctx)
	defer server.Disconnect(ctx)

	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": "echo"}
	if err := client.Send(req); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		m, ok := got.(map[string]any)
		if !ok || m["method"] != "echo" {
			t.Errorf("echoed %v, want original request", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echo")
	}
}

func TestPostMessage_IdentitySerializer(t *testing.T) {
	ep := &recordingEndpoint{}
	p, _ := NewPostMessageProvider(&PostMessageConfig{Endpoint: ep})

	req := &struct{ Method string }{Method: "ping"}
	if err := p.Send(req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	posted := ep.Posted()
	if len(posted) != 1 || posted[0] != any(req) {
		t.Errorf("posted %v, want the request unchanged", posted)
	}
}
