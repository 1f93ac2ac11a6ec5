// Package bridge implements the client side of the connection to the Unity
// editor.
//
// A Bridge owns at most one transport.Channel at a time and multiplexes any
// number of concurrent requests over it. Each request gets a unique id and a
// deadline and is parked in a correlation table until exactly one of the
// following resolves it:
//   - a reply with the same id arrives
//   - the timeout sweep observes that its deadline has passed
//   - the bridge is stopped or the channel is lost
//
// Connection states and transitions:
//
//	Disconnected --Start--> Connecting --handshake ok--> Connected
//	Connecting   --dial/handshake failure or Stop--> Disconnected
//	Connected    --Stop--> ShuttingDown --> Disconnected
//	Connected    --channel closed or failed--> Disconnected
//
// The bridge never reconnects on its own. Reconnection is an explicit Start
// by the owner.
//
// Example usage:
//
//	dialer := transport.NewWebSocketDialer(log, "ws://localhost:8090/McpUnity")
//	b := bridge.New(dialer, &bridge.Options{Logger: log})
//
//	if err := b.Start(ctx, "Claude Desktop"); err != nil {
//		return err
//	}
//	defer b.Stop()
//
//	resp, err := b.FetchResource(ctx, "get_menu_items", nil, 0)
package bridge
