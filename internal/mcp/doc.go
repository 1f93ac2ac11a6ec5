// Package mcp exposes the Unity editor to MCP clients.
//
// It registers the editor's tools and resources on a Model Context Protocol
// server. Every handler validates its input, forwards the call over the
// bridge and turns the correlated reply, or the bridge error, back into an
// MCP result. Handlers hold no state of their own and never retry.
package mcp
