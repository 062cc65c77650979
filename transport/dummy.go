package transport

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	terrors "github.com/vinayprograms/transportkit/errors"
	"github.com/vinayprograms/transportkit/logging"
)

var (
	futureType = reflect.TypeOf((*Future)(nil)).Elem()
	boolType   = reflect.TypeOf(false)
)

// DummyConfig configures a DummyProvider. Every return value may be given
// directly or as a zero-argument function producing it.
type DummyConfig struct {
	// OnMessage is invoked by InvokeOnMessage. Optional.
	OnMessage MessageHandler

	// OnDisconnect is invoked by InvokeOnDisconnect. Required.
	OnDisconnect DisconnectHandler

	// OnError receives type mismatches from IsConnected. Required.
	OnError ErrorHandler

	// ConnectRetValue is what Connect awaits: a Future or func returning one.
	// Default: Resolved(nil).
	ConnectRetValue any

	// DisconnectRetValue is what Disconnect awaits: a Future or func returning one.
	// Default: Resolved(nil).
	DisconnectRetValue any

	// IsConnectedRetValue is what IsConnected reports: a bool or func returning one.
	// Default: the internal connected flag.
	IsConnectedRetValue any

	Logger *logging.Logger
}

// DummyProvider is a synthetic provider whose results are supplied by
// configuration, for deterministic tests of Provider consumers.
type DummyProvider struct {
	handlers

	connectRet     any
	disconnectRet  any
	isConnectedRet any
	log            *logging.Logger

	mu        sync.Mutex
	connected bool
}

var _ Provider = (*DummyProvider)(nil)

// NewDummyProvider validates cfg and creates a DummyProvider.
func NewDummyProvider(cfg *DummyConfig) (*DummyProvider, error) {
	if cfg == nil {
		return nil, terrors.InvalidConfig(string(KindDummy), "missing configuration")
	}
	if cfg.OnDisconnect == nil {
		return nil, terrors.InvalidConfig(string(KindDummy), "OnDisconnect handler is required")
	}
	if cfg.OnError == nil {
		return nil, terrors.InvalidConfig(string(KindDummy), "OnError handler is required")
	}

	d := &DummyProvider{
		connectRet:     cfg.ConnectRetValue,
		disconnectRet:  cfg.DisconnectRetValue,
		isConnectedRet: cfg.IsConnectedRetValue,
		log:            orNop(cfg.Logger, KindDummy),
	}
	if d.connectRet == nil {
		d.connectRet = Resolved(nil)
	}
	if d.disconnectRet == nil {
		d.disconnectRet = Resolved(nil)
	}
	if d.isConnectedRet == nil {
		d.isConnectedRet = d.flag
	}
	d.handlers.init(cfg.OnMessage, cfg.OnDisconnect, cfg.OnError)

	return d, nil
}

func (d *DummyProvider) flag() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *DummyProvider) setFlag(v bool) {
	d.mu.Lock()
	d.connected = v
	d.mu.Unlock()
}

// Connect sets the connected flag and awaits the configured connect value.
// The flag is set even if that value rejects.
func (d *DummyProvider) Connect(ctx context.Context) error {
	d.setFlag(true)

	fut, err := d.future(d.connectRet)
	if err != nil {
		return err
	}
	_, err = fut.Await(ctx)
	if err == nil {
		d.log.Connected(string(KindDummy), "dummy")
	}
	return err
}

// Send discards msg.
func (d *DummyProvider) Send(msg any) error {
	return nil
}

// Disconnect awaits the configured disconnect value and clears the
// connected flag once it resolves.
func (d *DummyProvider) Disconnect(ctx context.Context) error {
	_, err := d.DisconnectValue(ctx)
	return err
}

// DisconnectValue is Disconnect returning the value the configured
// disconnect future resolved with.
func (d *DummyProvider) DisconnectValue(ctx context.Context) (any, error) {
	fut, err := d.future(d.disconnectRet)
	if err != nil {
		return nil, err
	}
	v, err := fut.Await(ctx)
	if err != nil {
		return nil, err
	}
	d.setFlag(false)
	d.log.Disconnected(string(KindDummy), "dummy", true)
	return v, nil
}

// IsConnected returns the configured is-connected value. A value that is
// not a bool is reported to the error handler and reads as false.
func (d *DummyProvider) IsConnected() bool {
	ok, err := d.CheckConnected()
	if err != nil {
		d.emitError(err)
		return false
	}
	return ok
}

// CheckConnected evaluates the configured is-connected value.
func (d *DummyProvider) CheckConnected() (bool, error) {
	v, err := getOrInvoke(d.isConnectedRet, boolType)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// OnMessage implements Provider.
func (d *DummyProvider) OnMessage(h MessageHandler) { d.setMessage(h) }

// OnDisconnect implements Provider.
func (d *DummyProvider) OnDisconnect(h DisconnectHandler) { d.setDisconnect(h) }

// OnError implements Provider.
func (d *DummyProvider) OnError(h ErrorHandler) { d.setError(h) }

// InvokeOnMessage calls the message handler with msg, standing in for an
// inbound network event.
func (d *DummyProvider) InvokeOnMessage(msg any) {
	d.emitMessage(msg)
}

// InvokeOnDisconnect calls the disconnect handler.
func (d *DummyProvider) InvokeOnDisconnect() {
	d.emitDisconnect()
}

func (d *DummyProvider) future(val any) (Future, error) {
	v, err := getOrInvoke(val, futureType)
	if err != nil {
		return nil, err
	}
	return v.(Future), nil
}

// getOrInvoke returns val, or its first result if val is a zero-argument
// function, checked against allowed. Interface types match by
// implementation and concrete types by identity; nil matches nothing. An
// empty allowed list accepts anything.
func getOrInvoke(val any, allowed ...reflect.Type) (any, error) {
	ret := val
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Func {
		if rv.IsNil() || rv.Type().NumIn() != 0 {
			return nil, terrors.TypeMismatch(string(KindDummy),
				fmt.Sprintf("configured function %T must take no arguments", val))
		}
		ret = nil
		if out := rv.Call(nil); len(out) > 0 {
			ret = out[0].Interface()
		}
	}

	if len(allowed) == 0 {
		return ret, nil
	}
	for _, t := range allowed {
		if matchesType(ret, t) {
			return ret, nil
		}
	}

	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = t.String()
	}
	return nil, terrors.TypeMismatch(string(KindDummy),
		fmt.Sprintf("return type %T differs from one of expected %s", ret, strings.Join(names, ", ")))
}

func matchesType(v any, t reflect.Type) bool {
	if v == nil {
		return false
	}
	vt := reflect.TypeOf(v)
	if t.Kind() == reflect.Interface {
		return vt.Implements(t)
	}
	return vt == t
}
