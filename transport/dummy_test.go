package transport

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	terrors "github.com/vinayprograms/transportkit/errors"
)

func newTestDummy(t *testing.T, cfg DummyConfig) *DummyProvider {
	t.Helper()
	if cfg.OnDisconnect == nil {
		cfg.OnDisconnect = func() {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}
	d, err := NewDummyProvider(&cfg)
	if err != nil {
		t.Fatalf("NewDummyProvider: %v", err)
	}
	return d
}

// --- Unit Tests ---

func TestDummy_Lifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDummy(t, DummyConfig{OnMessage: func(any) {}})

	if d.IsConnected() {
		t.Error("new provider should not be connected")
	}
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !d.IsConnected() {
		t.Error("IsConnected = false after Connect")
	}
	if err := d.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if d.IsConnected() {
		t.Error("IsConnected = true after Disconnect")
	}
}

func TestDummy_RequiresHandlers(t *testing.T) {
	tests := []struct {
		name string
		cfg  *DummyConfig
	}{
		{"nil config", nil},
		{"missing OnDisconnect", &DummyConfig{OnError: func(error) {}}},
		{"missing OnError", &DummyConfig{OnDisconnect: func() {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDummyProvider(tt.cfg)
			if !terrors.Is(err, terrors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestDummy_ConnectRejected(t *testing.T) {
	boom := errors.New("boom")
	d := newTestDummy(t, DummyConfig{ConnectRetValue: Rejected(boom)})

	if err := d.Connect(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Connect err = %v, want boom", err)
	}
	// The flag is set before the future is awaited.
	if !d.IsConnected() {
		t.Error("IsConnected = false after rejected Connect")
	}
}

func TestDummy_ConnectFunc(t *testing.T) {
	var calls atomic.Int32
	d := newTestDummy(t, DummyConfig{
		ConnectRetValue: func() Future {
			calls.Add(1)
			return Resolved("ok")
		},
	})

	for i := 0; i < 2; i++ {
		if err := d.Connect(context.Background()); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("factory called %d times, want 2", calls.Load())
	}
}

func TestDummy_ConnectWrongType(t *testing.T) {
	d := newTestDummy(t, DummyConfig{ConnectRetValue: 42})

	err := d.Connect(context.Background())
	if !terrors.Is(err, terrors.ErrCodeTypeMismatch) {
		t.Errorf("err = %v, want TYPE_MISMATCH", err)
	}
}

func TestDummy_DisconnectValue(t *testing.T) {
	d := newTestDummy(t, DummyConfig{DisconnectRetValue: Resolved("bye")})
	ctx := context.Background()

	d.Connect(ctx)
	v, err := d.DisconnectValue(ctx)
	if err != nil {
		t.Fatalf("DisconnectValue: %v", err)
	}
	if v != "bye" {
		t.Errorf("value = %v, want bye", v)
	}
}

func TestDummy_DisconnectPending(t *testing.T) {
	pending := NewDeferred()
	d := newTestDummy(t, DummyConfig{DisconnectRetValue: pending})

	d.Connect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Disconnect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if !d.IsConnected() {
		t.Error("flag cleared before disconnect future resolved")
	}

	pending.Resolve(nil)
	if err := d.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if d.IsConnected() {
		t.Error("IsConnected = true after resolved Disconnect")
	}
}

func TestDummy_IsConnectedOverride(t *testing.T) {
	d := newTestDummy(t, DummyConfig{IsConnectedRetValue: true})
	if !d.IsConnected() {
		t.Error("IsConnected = false, want configured true")
	}

	d = newTestDummy(t, DummyConfig{IsConnectedRetValue: func() bool { return true }})
	if !d.IsConnected() {
		t.Error("IsConnected = false, want func result true")
	}
}

func TestDummy_IsConnectedMismatch(t *testing.T) {
	var got error
	d := newTestDummy(t, DummyConfig{
		IsConnectedRetValue: "yes",
		OnError:             func(err error) { got = err },
	})

	if d.IsConnected() {
		t.Error("IsConnected = true for non-bool value")
	}
	if !terrors.Is(got, terrors.ErrCodeTypeMismatch) {
		t.Errorf("OnError got %v, want TYPE_MISMATCH", got)
	}

	if _, err := d.CheckConnected(); !terrors.Is(err, terrors.ErrCodeTypeMismatch) {
		t.Errorf("CheckConnected err = %v, want TYPE_MISMATCH", err)
	}
}

func TestDummy_InvokeHandlers(t *testing.T) {
	var msgs []any
	var disconnects int
	d := newTestDummy(t, DummyConfig{
		OnMessage:    func(msg any) { msgs = append(msgs, msg) },
		OnDisconnect: func() { disconnects++ },
	})

	d.InvokeOnMessage("arrived")
	d.InvokeOnDisconnect()

	if len(msgs) != 1 || msgs[0] != "arrived" {
		t.Errorf("messages = %v, want [arrived]", msgs)
	}
	if disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disconnects)
	}

	// Replacing and clearing handlers.
	var replaced bool
	d.OnMessage(func(any) { replaced = true })
	d.InvokeOnMessage("x")
	if !replaced {
		t.Error("replacement handler not called")
	}
	d.OnMessage(nil)
	d.InvokeOnMessage("y")
	if len(msgs) != 1 {
		t.Error("original handler called after replacement")
	}
}

func TestDummy_SendDiscards(t *testing.T) {
	d := newTestDummy(t, DummyConfig{})
	if err := d.Send(map[string]any{"id": 1}); err != nil {
		t.Errorf("Send: %v", err)
	}
}

func TestGetOrInvoke(t *testing.T) {
	stringType := reflect.TypeOf("")
	errorType := reflect.TypeOf((*error)(nil)).Elem()

	tests := []struct {
		name    string
		val     any
		allowed []reflect.Type
		want    any
		wantErr bool
	}{
		{"plain value, no allow-list", 7, nil, 7, false},
		{"nil, no allow-list", nil, nil, nil, false},
		{"func, no allow-list", func() int { return 3 }, nil, 3, false},
		{"value matches", "a", []reflect.Type{stringType}, "a", false},
		{"func result matches", func() string { return "b" }, []reflect.Type{stringType}, "b", false},
		{"second type matches", true, []reflect.Type{stringType, boolType}, true, false},
		{"value mismatch", 1, []reflect.Type{stringType}, nil, true},
		{"nil never matches", nil, []reflect.Type{stringType}, nil, true},
		{"func without result", func() {}, []reflect.Type{stringType}, nil, true},
		{"func with args", func(int) string { return "" }, nil, nil, true},
		{"interface by implementation", errors.New("x"), []reflect.Type{errorType}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getOrInvoke(tt.val, tt.allowed...)
			if tt.wantErr {
				if !terrors.Is(err, terrors.ErrCodeTypeMismatch) {
					t.Errorf("err = %v, want TYPE_MISMATCH", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeferred_FirstSettlementWins(t *testing.T) {
	d := NewDeferred()
	d.Resolve(1)
	d.Reject(errors.New("late"))
	d.Resolve(2)

	v, err := d.Await(context.Background())
	if err != nil || v != 1 {
		t.Errorf("Await = (%v, %v), want (1, nil)", v, err)
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done not closed after Resolve")
	}
}

func TestDeferred_SettledIgnoresCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := Resolved("x").Await(ctx)
	if err != nil || v != "x" {
		t.Errorf("Await = (%v, %v), want (x, nil)", v, err)
	}
}
