package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dsarno/mcp-unity/internal/errors"
	"github.com/dsarno/mcp-unity/internal/logging"
	"github.com/dsarno/mcp-unity/internal/protocol"
	"github.com/dsarno/mcp-unity/internal/transport"
)

const (
	// DefaultRequestTimeout is used when a request does not set its own timeout.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultHandshakeTimeout bounds the wait for Unity to acknowledge a handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultSweepInterval is how often expired requests are looked for.
	// A request times out at most one interval after its deadline.
	DefaultSweepInterval = 100 * time.Millisecond

	// DefaultStopTimeout bounds how long Stop waits for connection goroutines.
	DefaultStopTimeout = 5 * time.Second
)

// Options configures a Bridge.
type Options struct {
	// Logger receives bridge diagnostics.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// RequestTimeout is the default per-request timeout.
	RequestTimeout time.Duration

	// HandshakeTimeout bounds the handshake performed by Start.
	HandshakeTimeout time.Duration

	// SweepInterval is the granularity of timeout detection.
	SweepInterval time.Duration

	// StopTimeout bounds how long Stop waits for the channel to wind down.
	StopTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}

	if out.Logger == nil {
		out.Logger = logging.Nop()
	}

	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}

	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if out.SweepInterval <= 0 {
		out.SweepInterval = DefaultSweepInterval
	}

	if out.StopTimeout <= 0 {
		out.StopTimeout = DefaultStopTimeout
	}

	return out
}

// Bridge is the client end of the connection to the Unity editor.
//
// A Bridge is safe for concurrent use. Construct one with New; the zero value
// is not usable.
type Bridge struct {
	log    *slog.Logger
	dialer transport.Dialer
	opts   Options

	// mu serializes state transitions and guards state, epoch and conn.
	// Lock order: mu before table.mu.
	mu    sync.Mutex
	state State
	epoch uint64
	conn  *connection

	table *correlationTable
}

// outboxSize bounds the requests queued behind a slow write.
const outboxSize = 64

// connection is one channel plus the goroutines serving it.
type connection struct {
	channel transport.Channel
	cancel  context.CancelFunc
	eg      *errgroup.Group
	ctx     context.Context

	// outbox feeds writeLoop, the only writer of channel.
	outbox chan *outbound

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a disconnected Bridge that opens channels with dialer.
func New(dialer transport.Dialer, options *Options) *Bridge {
	opts := options.withDefaults()

	return &Bridge{
		log:    opts.Logger.With("component", "bridge"),
		dialer: dialer,
		opts:   opts,
		state:  StateDisconnected,
		table:  newCorrelationTable(),
	}
}

// IsConnected reports whether requests can currently be sent.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state == StateConnected
}

// State returns the current connection state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Start connects to Unity on behalf of the named MCP client.
//
// Start dials the editor, performs the handshake and returns once Unity has
// acknowledged it. On any failure the bridge is left disconnected and a
// *errors.ConnectionError is returned; Start may then be called again.
// Calling Start while connecting or connected fails immediately.
func (b *Bridge) Start(ctx context.Context, clientName string) error {
	b.mu.Lock()

	if b.state != StateDisconnected {
		state := b.state
		b.mu.Unlock()

		return &errors.ConnectionError{Reason: "bridge is " + state.String(), Err: errors.ErrAlreadyStarted}
	}

	b.state = StateConnecting
	b.epoch++
	epoch := b.epoch

	b.mu.Unlock()

	b.log.Info("Connecting to Unity", "client_name", clientName)

	channel, err := b.dialer.Dial(ctx, clientName)
	if err != nil {
		b.abortConnecting(epoch)
		b.log.Warn("Failed to connect to Unity", "error", err)

		return &errors.ConnectionError{Reason: "Unity is unreachable", Err: err}
	}

	conn := newConnection(channel)

	b.mu.Lock()

	if b.epoch != epoch || b.state != StateConnecting {
		b.mu.Unlock()
		conn.close()

		return &errors.ConnectionError{Reason: "start aborted", Err: errors.ErrShuttingDown}
	}

	b.conn = conn

	b.mu.Unlock()

	conn.eg.Go(func() error {
		return b.readLoop(conn)
	})

	conn.eg.Go(func() error {
		return b.writeLoop(conn)
	})

	conn.eg.Go(func() error {
		return b.sweepLoop(conn)
	})

	go func() {
		_ = conn.eg.Wait()

		close(conn.done)
	}()

	if err := b.handshake(ctx, conn, clientName); err != nil {
		b.dropConnection(conn, err)
		b.log.Warn("Unity handshake failed", "error", err)

		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != conn {
		return &errors.ConnectionError{Reason: "connection closed during handshake", Err: errors.ErrConnectionLost}
	}

	b.state = StateConnected
	b.log.Info("Connected to Unity", "client_name", clientName)

	return nil
}

// abortConnecting returns a failed Start to Disconnected unless Stop or
// another transition already moved the bridge on.
func (b *Bridge) abortConnecting(epoch uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.epoch == epoch && b.state == StateConnecting {
		b.state = StateDisconnected
	}
}

// handshake sends the client name and waits for Unity's acknowledgement.
func (b *Bridge) handshake(ctx context.Context, conn *connection, clientName string) error {
	params := protocol.HandshakeParams{ClientName: clientName}

	resp, err := b.roundTrip(ctx, conn, protocol.MethodHandshake, params, b.opts.HandshakeTimeout)
	if err != nil {
		var connErr *errors.ConnectionError
		if stderrors.As(err, &connErr) {
			return err
		}

		return &errors.ConnectionError{Reason: "handshake", Err: err}
	}

	if !resp.Success {
		reason := resp.Message
		if reason == "" {
			reason = "Unity rejected the connection"
		}

		return &errors.ConnectionError{Reason: reason, Err: errors.ErrHandshakeRejected}
	}

	return nil
}

// Stop disconnects from Unity.
//
// Every pending request fails with a *errors.ConnectionError. Stop is
// best-effort, waits at most Options.StopTimeout, and may be called at any
// time and any number of times.
func (b *Bridge) Stop() {
	b.mu.Lock()

	if b.state == StateShuttingDown || (b.state == StateDisconnected && b.conn == nil) {
		b.mu.Unlock()

		return
	}

	b.log.Info("Stopping bridge", "state", b.state.String())

	conn := b.conn
	b.conn = nil
	b.state = StateShuttingDown
	b.epoch++
	drained := b.table.drain()

	b.mu.Unlock()

	b.failAll(drained, func() error {
		return &errors.ConnectionError{Reason: "bridge shutting down", Err: errors.ErrShuttingDown}
	})

	if conn != nil {
		conn.close()

		if !conn.wait(b.opts.StopTimeout) {
			b.log.Warn("Timed out waiting for connection to close", "timeout", b.opts.StopTimeout)
		}
	}

	b.mu.Lock()
	b.state = StateDisconnected
	b.mu.Unlock()

	b.log.Info("Bridge stopped", "failed_requests", len(drained))
}

// dropConnection tears down conn after it failed. It is a no-op if conn is
// no longer the bridge's current connection.
func (b *Bridge) dropConnection(conn *connection, cause error) {
	b.mu.Lock()

	if b.conn != conn {
		b.mu.Unlock()
		conn.close()

		return
	}

	b.conn = nil
	b.state = StateDisconnected
	b.epoch++
	drained := b.table.drain()

	b.mu.Unlock()

	if len(drained) > 0 {
		b.log.Warn("Failing pending requests", "count", len(drained), "cause", cause)
	}

	b.failAll(drained, func() error {
		return &errors.ConnectionError{Reason: "connection lost", Err: errors.ErrConnectionLost}
	})

	conn.close()
}

// failAll resolves every request with a fresh error from newErr.
func (b *Bridge) failAll(pending []*pendingRequest, newErr func() error) {
	for _, p := range pending {
		p.resolve(result{err: newErr()})
	}
}

// readLoop routes inbound envelopes until the channel ends.
func (b *Bridge) readLoop(conn *connection) error {
	defer b.log.Debug("Bridge read loop stopped")

	messages, errs := conn.channel.ReadMessages(conn.ctx)

	for {
		select {
		case data, ok := <-messages:
			if !ok {
				b.handleChannelClosed(conn, errs)

				return nil
			}

			b.route(data)

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if err != nil {
				b.log.Warn("Unity channel failed", "error", err)
				b.dropConnection(conn, err)

				return nil
			}

		case <-conn.ctx.Done():
			return nil
		}
	}
}

// handleChannelClosed treats the end of the message stream as a loss of the
// connection, preferring the error reported by the channel if there is one.
func (b *Bridge) handleChannelClosed(conn *connection, errs <-chan error) {
	var cause error

	if errs != nil {
		select {
		case err := <-errs:
			cause = err
		default:
		}
	}

	if cause == nil {
		cause = errors.ErrConnectionLost
	}

	if conn.ctx.Err() == nil {
		b.log.Warn("Unity channel closed", "error", cause)
	}

	b.dropConnection(conn, cause)
}

// route resolves the pending request a reply belongs to.
// Malformed and unmatched replies are logged and dropped.
func (b *Bridge) route(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Recovered panic while routing reply", "panic", fmt.Sprint(r))
		}
	}()

	resp, err := protocol.DecodeResponse(data)
	if protocol.IsMissingID(err) {
		b.log.Warn("Discarding reply without request id", "data_len", len(data))

		return
	}

	if err != nil {
		b.log.Warn("Discarding malformed reply from Unity", "error", err, "data_len", len(data))

		return
	}

	p := b.table.claim(resp.ID)
	if p == nil {
		b.log.Warn("No pending request for reply", "request_id", resp.ID)

		return
	}

	b.log.Debug("Received reply", "request_id", resp.ID, "method", p.method, "success", resp.Success)

	p.resolve(result{resp: resp})
}

// writeLoop writes queued envelopes in order under the connection's context.
// A caller giving up never interrupts a write in progress, since an
// interrupted frame would take the whole connection down.
func (b *Bridge) writeLoop(conn *connection) error {
	defer b.log.Debug("Bridge write loop stopped")

	for {
		select {
		case out := <-conn.outbox:
			if !b.table.pending(out.id) {
				b.log.Debug("Skipping write of resolved request", "request_id", out.id, "method", out.method)

				out.sent <- nil

				continue
			}

			err := conn.channel.SendMessage(conn.ctx, out.data)
			if err != nil && conn.ctx.Err() == nil {
				b.log.Warn("Failed to send request", "request_id", out.id, "method", out.method, "error", err)
			}

			out.sent <- err

		case <-conn.ctx.Done():
			return nil
		}
	}
}

// sweepLoop fails requests whose deadline has passed.
func (b *Bridge) sweepLoop(conn *connection) error {
	ticker := time.NewTicker(b.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			b.sweep(now)
		case <-conn.ctx.Done():
			return nil
		}
	}
}

func (b *Bridge) sweep(now time.Time) {
	for _, p := range b.table.expire(now) {
		elapsed := now.Sub(p.created)

		b.log.Warn("Request timed out", "request_id", p.id, "method", p.method, "elapsed", elapsed)

		p.resolve(result{err: &errors.TimeoutError{Method: p.method, Elapsed: elapsed}})
	}
}

func newConnection(channel transport.Channel) *connection {
	// The connection outlives the Start call, so it does not inherit the
	// caller's context.
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	return &connection{
		channel: channel,
		cancel:  cancel,
		eg:      eg,
		ctx:     egCtx,
		outbox:  make(chan *outbound, outboxSize),
		done:    make(chan struct{}),
	}
}

// close stops the connection goroutines and closes the channel without waiting.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()

		go func() {
			_ = c.channel.Close()
		}()
	})
}

// wait blocks until the connection goroutines exit or timeout elapses.
func (c *connection) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return true
	case <-timer.C:
		return false
	}
}
