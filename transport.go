package mcpunity

import "github.com/dsarno/mcp-unity/internal/transport"

// Channel is a single duplex connection to the Unity editor.
// Implement this, together with Dialer, to provide custom transports for
// testing or alternative connections.
type Channel = transport.Channel

// Dialer opens a Channel on behalf of a named MCP client.
//
// The default implementation dials the editor's WebSocket endpoint.
// Custom dialers can be injected via WithDialer.
type Dialer = transport.Dialer

// Endpoint builds the editor's WebSocket URL from host, port and path.
// An empty path uses the plugin's default.
func Endpoint(host string, port int, path string) (string, error) {
	return transport.Endpoint(host, port, path)
}
