package endpoint

import (
	"errors"
	"testing"
)

func TestListeners_DispatchOrder(t *testing.T) {
	var ls Listeners
	var got []string

	ls.AddMessageListener(func(data any) { got = append(got, "a:"+data.(string)) })
	ls.AddMessageListener(func(data any) { got = append(got, "b:"+data.(string)) })

	ls.Dispatch("x")

	if len(got) != 2 || got[0] != "a:x" || got[1] != "b:x" {
		t.Errorf("dispatch order = %v, want [a:x b:x]", got)
	}
}

func TestListeners_Remove(t *testing.T) {
	var ls Listeners
	calls := 0

	id := ls.AddMessageListener(func(any) { calls++ })
	if ls.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ls.Len())
	}

	ls.RemoveMessageListener(id)
	ls.RemoveMessageListener(id) // second removal is a no-op
	ls.RemoveMessageListener("unknown")

	ls.Dispatch("x")
	if calls != 0 {
		t.Errorf("removed listener called %d times", calls)
	}
	if ls.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ls.Len())
	}
}

func TestListeners_UniqueIDs(t *testing.T) {
	var ls Listeners
	a := ls.AddMessageListener(func(any) {})
	b := ls.AddMessageListener(func(any) {})
	if a == b {
		t.Error("listener IDs should be unique")
	}
}

func TestListeners_SelfRemovalDuringDispatch(t *testing.T) {
	var ls Listeners
	var id ListenerID
	calls := 0
	id = ls.AddMessageListener(func(any) {
		calls++
		ls.RemoveMessageListener(id)
	})

	ls.Dispatch(1)
	ls.Dispatch(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestToBytes(t *testing.T) {
	if b, err := toBytes("abc"); err != nil || string(b) != "abc" {
		t.Errorf("toBytes(string) = %q, %v", b, err)
	}
	if b, err := toBytes([]byte("abc")); err != nil || string(b) != "abc" {
		t.Errorf("toBytes([]byte) = %q, %v", b, err)
	}
	if _, err := toBytes(42); !errors.Is(err, ErrUnsupportedPayload) {
		t.Errorf("toBytes(int) error = %v, want ErrUnsupportedPayload", err)
	}
}
