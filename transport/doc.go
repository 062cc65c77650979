// Package transport provides interchangeable transport providers for
// JSON-RPC-style messages.
//
// The Provider interface gives every channel the same lifecycle (connect,
// send, disconnect, is-connected) and the same handler registration, so a
// higher-level RPC layer can swap transports without changing its logic.
//
// # Available Providers
//
//   - DummyProvider: results supplied by configuration (for tests)
//   - PostMessageProvider: any endpoint.Endpoint (message channels, streams, NATS)
//   - WebSocketProvider: client WebSocket connection
//
// # Usage
//
// All providers follow the same pattern:
//
//	p, err := transport.New(transport.Config{
//	    Kind:      transport.KindWebSocket,
//	    WebSocket: &transport.WebSocketConfig{Server: "ws://localhost:8080/rpc"},
//	})
//	if err != nil {
//	    return err
//	}
//	p.OnMessage(func(msg any) { /* handle response */ })
//	p.OnDisconnect(func() { /* channel closed */ })
//
//	if err := p.Connect(ctx); err != nil {
//	    return err
//	}
//	defer p.Disconnect(ctx)
//
//	p.Send(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
//
// # Design Decisions
//
//   - Handlers are replaceable at any time; nil restores the no-op
//   - Handlers run on the provider's delivery goroutine, outside any lock
//   - Failures with no caller to return to go to the error handler
//   - Reconnection settings are exposed but no reconnect is attempted
//
// # Thread Safety
//
// All provider methods are safe for concurrent use.
package transport
