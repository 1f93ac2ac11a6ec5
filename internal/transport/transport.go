package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Channel is a single duplex connection to the Unity editor.
//
// The default implementation is WebSocketChannel. Custom channels can be
// supplied through a Dialer for testing or alternative transports.
type Channel interface {
	// ReadMessages returns channels for receiving messages and errors.
	// Each message is one complete envelope. Both channels are closed when
	// the connection ends; an unexpected end is reported on the error channel
	// first. A Close initiated locally ends reading without an error.
	ReadMessages(ctx context.Context) (<-chan []byte, <-chan error)

	// SendMessage writes one complete envelope.
	// This method must be safe for concurrent use and must never interleave
	// two envelopes. If ctx ends mid-write the connection may be closed, so
	// callers pass a context scoped to the connection, not to one request.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the connection. It's safe to call Close multiple times.
	Close() error
}

// Dialer opens a Channel to the Unity editor on behalf of a named MCP client.
type Dialer interface {
	Dial(ctx context.Context, clientName string) (Channel, error)
}

// DefaultPath is the WebSocket path served by the Unity editor plugin.
const DefaultPath = "/McpUnity"

// Endpoint builds the WebSocket URL for the Unity editor.
func Endpoint(host string, port int, path string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("empty host")
	}

	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %d", port)
	}

	if path == "" {
		path = DefaultPath
	}

	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   path,
	}

	return u.String(), nil
}
