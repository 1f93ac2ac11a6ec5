package mcpunity

import (
	"log/slog"
	"time"
)

// DefaultURL is the endpoint served by the MCP Unity editor plugin.
const DefaultURL = "ws://localhost:8090/McpUnity"

// BridgeOptions collects the settings applied by Option values.
type BridgeOptions struct {
	// Logger receives bridge and transport diagnostics.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// URL is the editor endpoint. Ignored when Dialer is set.
	URL string

	// Dialer overrides the WebSocket dialer.
	Dialer Dialer

	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration
	SweepInterval    time.Duration
	StopTimeout      time.Duration
}

// Option configures BridgeOptions using the functional options pattern.
type Option func(*BridgeOptions)

// applyOptions applies functional options to a BridgeOptions struct.
func applyOptions(opts []Option) *BridgeOptions {
	options := &BridgeOptions{URL: DefaultURL}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *BridgeOptions) {
		o.Logger = logger
	}
}

// WithURL sets the editor endpoint, e.g. "ws://localhost:8090/McpUnity".
func WithURL(url string) Option {
	return func(o *BridgeOptions) {
		o.URL = url
	}
}

// WithDialer replaces the WebSocket dialer, typically for tests.
func WithDialer(dialer Dialer) Option {
	return func(o *BridgeOptions) {
		o.Dialer = dialer
	}
}

// WithRequestTimeout sets the timeout used by requests that pass zero.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *BridgeOptions) {
		o.RequestTimeout = timeout
	}
}

// WithHandshakeTimeout bounds how long Start waits for Unity to accept the handshake.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(o *BridgeOptions) {
		o.HandshakeTimeout = timeout
	}
}

// WithSweepInterval sets how often expired requests are detected.
func WithSweepInterval(interval time.Duration) Option {
	return func(o *BridgeOptions) {
		o.SweepInterval = interval
	}
}

// WithStopTimeout bounds how long Stop waits for the connection to wind down.
func WithStopTimeout(timeout time.Duration) Option {
	return func(o *BridgeOptions) {
		o.StopTimeout = timeout
	}
}
