package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsarno/mcp-unity/internal/protocol"
	"github.com/dsarno/mcp-unity/internal/transport"
)

// sentRequest is a request envelope as seen by the fake Unity side.
type sentRequest struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// handshakeFunc answers a handshake; a nil reply means Unity stays silent.
type handshakeFunc func(req sentRequest) map[string]any

func acceptHandshake(sentRequest) map[string]any {
	return map[string]any{"success": true}
}

// fakeChannel implements transport.Channel in memory.
// Handshakes are answered by the configured handshakeFunc; every other
// request is published on requests for the test to answer.
type fakeChannel struct {
	incoming  chan []byte
	errs      chan error
	requests  chan sentRequest
	handshake handshakeFunc

	mu      sync.Mutex
	closed  bool
	sendErr error
	stall   chan struct{}
}

var _ transport.Channel = (*fakeChannel)(nil)

func newFakeChannel(handshake handshakeFunc) *fakeChannel {
	return &fakeChannel{
		incoming:  make(chan []byte, 128),
		errs:      make(chan error, 1),
		requests:  make(chan sentRequest, 128),
		handshake: handshake,
	}
}

func (c *fakeChannel) ReadMessages(_ context.Context) (<-chan []byte, <-chan error) {
	return c.incoming, c.errs
}

// SendMessage behaves like a WebSocket write: while writes are stalled it
// blocks, and a ctx ending mid-write closes the whole connection.
func (c *fakeChannel) SendMessage(ctx context.Context, data []byte) error {
	c.mu.Lock()
	closed, sendErr, stall := c.closed, c.sendErr, c.stall
	c.mu.Unlock()

	if closed {
		return net.ErrClosed
	}

	if stall != nil {
		select {
		case <-stall:
		case <-ctx.Done():
			c.fail(ctx.Err())

			return ctx.Err()
		}
	}

	if sendErr != nil {
		return sendErr
	}

	var req sentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	if req.Method == protocol.MethodHandshake {
		if c.handshake != nil {
			if reply := c.handshake(req); reply != nil {
				c.reply(req.ID, reply)
			}
		}

		return nil
	}

	c.requests <- req

	return nil
}

func (c *fakeChannel) setSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendErr = err
}

// stallWrites makes every following SendMessage block until release is
// called. release is also run at test cleanup.
func (c *fakeChannel) stallWrites(t *testing.T) (release func()) {
	t.Helper()

	gate := make(chan struct{})

	c.mu.Lock()
	c.stall = gate
	c.mu.Unlock()

	var once sync.Once

	release = func() {
		once.Do(func() {
			c.mu.Lock()
			c.stall = nil
			c.mu.Unlock()

			close(gate)
		})
	}

	t.Cleanup(release)

	return release
}

// reply delivers a reply envelope for id with the given fields.
func (c *fakeChannel) reply(id string, fields map[string]any) {
	msg := map[string]any{"id": id}
	maps.Copy(msg, fields)

	data, _ := json.Marshal(msg)
	c.deliver(data)
}

func (c *fakeChannel) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.incoming <- data
}

// fail simulates an unexpected loss of the connection.
func (c *fakeChannel) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.errs <- err

	close(c.incoming)
	close(c.errs)
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true

		close(c.incoming)
		close(c.errs)
	}

	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// nextRequest waits for the next non-handshake request.
func (c *fakeChannel) nextRequest(t *testing.T) sentRequest {
	t.Helper()

	select {
	case req := <-c.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no request was sent")

		return sentRequest{}
	}
}

// fakeDialer implements transport.Dialer, creating a fakeChannel per dial.
type fakeDialer struct {
	mu        sync.Mutex
	dialErr   error
	gate      chan struct{}
	handshake handshakeFunc
	channels  []*fakeChannel
	names     []string
}

var _ transport.Dialer = (*fakeDialer)(nil)

func newFakeDialer() *fakeDialer {
	return &fakeDialer{handshake: acceptHandshake}
}

func (d *fakeDialer) Dial(ctx context.Context, clientName string) (transport.Channel, error) {
	d.mu.Lock()
	gate, dialErr, handshake := d.gate, d.dialErr, d.handshake
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if dialErr != nil {
		return nil, dialErr
	}

	ch := newFakeChannel(handshake)

	d.mu.Lock()
	d.channels = append(d.channels, ch)
	d.names = append(d.names, clientName)
	d.mu.Unlock()

	return ch, nil
}

func (d *fakeDialer) setDialError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialErr = err
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.channels) == 0 {
		return nil
	}

	return d.channels[len(d.channels)-1]
}

func (d *fakeDialer) clientNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.names...)
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.channels)
}

// newTestBridge creates a bridge with short timings for tests.
func newTestBridge(t *testing.T, dialer transport.Dialer) *Bridge {
	t.Helper()

	b := New(dialer, &Options{
		Logger:           slog.Default(),
		RequestTimeout:   2 * time.Second,
		HandshakeTimeout: 500 * time.Millisecond,
		SweepInterval:    10 * time.Millisecond,
		StopTimeout:      time.Second,
	})
	t.Cleanup(b.Stop)

	return b
}

// startTestBridge creates a bridge and connects it.
func startTestBridge(t *testing.T) (*Bridge, *fakeDialer) {
	t.Helper()

	dialer := newFakeDialer()
	b := newTestBridge(t, dialer)

	require.NoError(t, b.Start(context.Background(), "TestClient"))
	require.True(t, b.IsConnected())

	return b, dialer
}

// logRecorder is a slog.Handler that keeps the messages it sees.
type logRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, rec.Message)

	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *logRecorder) WithGroup(string) slog.Handler { return r }

func (r *logRecorder) count(message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for _, m := range r.messages {
		if m == message {
			n++
		}
	}

	return n
}

// asyncResult is the outcome of a request issued in the background.
type asyncResult struct {
	resp *protocol.Response
	err  error
}

func sendAsync(b *Bridge, method string, params any, timeout time.Duration) <-chan asyncResult {
	out := make(chan asyncResult, 1)

	go func() {
		resp, err := b.SendRequest(context.Background(), method, params, timeout)
		out <- asyncResult{resp: resp, err: err}
	}()

	return out
}

func await(t *testing.T, ch <-chan asyncResult) asyncResult {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("request did not resolve")

		return asyncResult{}
	}
}
