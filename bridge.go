package mcpunity

import (
	"github.com/dsarno/mcp-unity/internal/bridge"
	"github.com/dsarno/mcp-unity/internal/protocol"
	"github.com/dsarno/mcp-unity/internal/transport"
)

// Bridge is the client end of the connection to the Unity editor.
// See the internal bridge package for the full contract of Start, Stop,
// SendRequest and FetchResource.
type Bridge = bridge.Bridge

// State is the connection state of a Bridge.
type State = bridge.State

// Connection states.
const (
	StateDisconnected = bridge.StateDisconnected
	StateConnecting   = bridge.StateConnecting
	StateConnected    = bridge.StateConnected
	StateShuttingDown = bridge.StateShuttingDown
)

// Response is a successful reply from Unity. Payload holds the
// method-specific fields.
type Response = protocol.Response

// NewBridge creates a disconnected Bridge. Call Start to connect.
func NewBridge(opts ...Option) *Bridge {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	dialer := options.Dialer
	if dialer == nil {
		dialer = transport.NewWebSocketDialer(log, options.URL)
	}

	return bridge.New(dialer, &bridge.Options{
		Logger:           log,
		RequestTimeout:   options.RequestTimeout,
		HandshakeTimeout: options.HandshakeTimeout,
		SweepInterval:    options.SweepInterval,
		StopTimeout:      options.StopTimeout,
	})
}
