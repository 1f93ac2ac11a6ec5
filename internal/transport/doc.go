// Package transport provides the duplex message channel between the bridge
// and the Unity editor.
//
// The bridge depends only on the Channel and Dialer interfaces defined here.
// The default implementation speaks WebSocket to the MCP Unity editor plugin,
// which listens on ws://localhost:8090/McpUnity unless configured otherwise.
package transport
