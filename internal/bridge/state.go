package bridge

// State is the connection state of a Bridge.
type State int

const (
	// StateDisconnected means no channel is open.
	StateDisconnected State = iota
	// StateConnecting means Start is dialing or waiting for the handshake.
	StateConnecting
	// StateConnected means requests may be sent.
	StateConnected
	// StateShuttingDown means Stop is failing requests and closing the channel.
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}
