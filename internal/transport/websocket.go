package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

const (
	// maxMessageSize is the largest reply accepted from Unity.
	// Hierarchy and asset listings of big projects run to several megabytes.
	maxMessageSize = 32 * 1024 * 1024 // 32MB

	// ClientNameHeader carries the MCP client's display name on the upgrade request.
	ClientNameHeader = "X-Client-Name"
)

// Compile-time verification that the WebSocket types implement the interfaces.
var (
	_ Channel = (*WebSocketChannel)(nil)
	_ Dialer  = (*WebSocketDialer)(nil)
)

// WebSocketDialer dials the Unity editor plugin over WebSocket.
type WebSocketDialer struct {
	log *slog.Logger
	url string
}

// NewWebSocketDialer creates a dialer for the given ws:// URL.
func NewWebSocketDialer(log *slog.Logger, url string) *WebSocketDialer {
	return &WebSocketDialer{
		log: log.With("component", "websocket"),
		url: url,
	}
}

// URL returns the endpoint this dialer connects to.
func (d *WebSocketDialer) URL() string {
	return d.url
}

// Dial opens a WebSocket connection to Unity.
func (d *WebSocketDialer) Dial(ctx context.Context, clientName string) (Channel, error) {
	d.log.Debug("Dialing Unity", "url", d.url, "client_name", clientName)

	header := http.Header{}
	if clientName != "" {
		header.Set(ClientNameHeader, clientName)
	}

	//nolint:bodyclose // the response body is owned by the websocket library
	conn, _, err := websocket.Dial(ctx, d.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}

	conn.SetReadLimit(maxMessageSize)

	d.log.Info("Connected to Unity", "url", d.url)

	return NewWebSocketChannel(d.log, conn), nil
}

// WebSocketChannel implements Channel over a WebSocket connection.
type WebSocketChannel struct {
	log  *slog.Logger
	conn *websocket.Conn

	mu      sync.Mutex // Serializes writes
	closeMu sync.Mutex
	closing bool
}

// NewWebSocketChannel wraps an established WebSocket connection.
func NewWebSocketChannel(log *slog.Logger, conn *websocket.Conn) *WebSocketChannel {
	return &WebSocketChannel{
		log:  log,
		conn: conn,
	}
}

func (c *WebSocketChannel) isClosing() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	return c.closing
}

// ReadMessages reads envelopes until the connection ends.
func (c *WebSocketChannel) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	messages := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)
		defer c.log.Debug("WebSocket read loop stopped")

		for {
			_, data, err := c.conn.Read(ctx)
			if err != nil {
				if c.isClosing() || ctx.Err() != nil {
					return
				}

				c.log.Debug("WebSocket read failed", "error", err)

				errs <- fmt.Errorf("read: %w", err)

				return
			}

			select {
			case messages <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return messages, errs
}

// SendMessage writes one text frame. coder/websocket closes the connection
// when ctx ends before the frame is written.
func (c *WebSocketChannel) SendMessage(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosing() {
		return net.ErrClosed
	}

	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Close performs the WebSocket closing handshake.
func (c *WebSocketChannel) Close() error {
	c.closeMu.Lock()
	if c.closing {
		c.closeMu.Unlock()

		return nil
	}

	c.closing = true
	c.closeMu.Unlock()

	err := c.conn.Close(websocket.StatusNormalClosure, "bridge shutting down")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Debug("WebSocket close returned error", "error", err)

		return err
	}

	return nil
}
