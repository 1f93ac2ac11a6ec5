package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dsarno/mcp-unity/internal/errors"
	"github.com/dsarno/mcp-unity/internal/protocol"
)

// unreachableReason is reported when a request is made without a connection.
const unreachableReason = "Unity is unreachable, ensure the editor is running with the MCP Unity plugin enabled"

// failureFunc builds the error for a reply with success set to false.
type failureFunc func(method, message string) error

func toolFailure(method, message string) error {
	if message == "" {
		message = fmt.Sprintf("Unity failed to execute %s", method)
	}

	return &errors.ToolExecutionError{Method: method, Message: message}
}

func resourceFailure(method, message string) error {
	if message == "" {
		message = fmt.Sprintf("Failed to fetch %s from Unity", method)
	}

	return &errors.ResourceFetchError{Method: method, Message: message}
}

// SendRequest invokes an editor action and waits for its reply.
//
// A timeout of zero or less uses Options.RequestTimeout. If the bridge is not
// connected the call fails at once with a *errors.ConnectionError and nothing
// is sent. Otherwise the call returns the first of:
//   - the reply, or a *errors.ToolExecutionError if Unity reported failure
//   - a *errors.TimeoutError once the deadline has passed
//   - a *errors.ConnectionError if the bridge stops or the channel is lost
//   - ctx.Err() if ctx is cancelled first
//
// SendRequest is safe to call from many goroutines; requests never block or
// fail one another.
func (b *Bridge) SendRequest(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*protocol.Response, error) {
	return b.dispatch(ctx, method, params, timeout, toolFailure)
}

// FetchResource is SendRequest for methods that read editor data. A reply
// reporting failure yields a *errors.ResourceFetchError.
func (b *Bridge) FetchResource(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*protocol.Response, error) {
	return b.dispatch(ctx, method, params, timeout, resourceFailure)
}

func (b *Bridge) dispatch(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
	failure failureFunc,
) (*protocol.Response, error) {
	if method == "" {
		return nil, &errors.ValidationError{Field: "method", Message: "must not be empty"}
	}

	if timeout <= 0 {
		timeout = b.opts.RequestTimeout
	}

	resp, err := b.roundTrip(ctx, nil, method, params, timeout)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		b.log.Debug("Unity reported failure", "request_id", resp.ID, "method", method, "message", resp.Message)

		return nil, failure(method, resp.Message)
	}

	return resp, nil
}

// outbound is an envelope queued for writeLoop. sent receives the outcome
// of the write.
type outbound struct {
	id     string
	method string
	data   []byte
	sent   chan error
}

// roundTrip sends one envelope and waits for its resolution.
//
// With via == nil the bridge must be connected. The handshake passes the
// connection being established so it can run while still connecting.
//
// The caller never blocks on the write itself: while the envelope is queued
// or being written it still observes its reply, the timeout sweep, forced
// failure and ctx.
func (b *Bridge) roundTrip(
	ctx context.Context,
	via *connection,
	method string,
	params any,
	timeout time.Duration,
) (*protocol.Response, error) {
	id := ulid.Make().String()

	data, err := json.Marshal(&protocol.Request{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, &errors.ValidationError{Field: "params", Message: err.Error()}
	}

	p, conn, err := b.register(via, id, method, params, timeout)
	if err != nil {
		return nil, err
	}

	b.log.Debug("Sending request", "request_id", id, "method", method, "timeout", timeout)

	out := &outbound{id: id, method: method, data: data, sent: make(chan error, 1)}

	select {
	case conn.outbox <- out:
	case r := <-p.done:
		return r.resp, r.err
	case <-ctx.Done():
		return b.abandon(ctx, p)
	case <-conn.ctx.Done():
		return b.fail(p, &errors.ConnectionError{Reason: "connection lost", Err: errors.ErrConnectionLost})
	}

	sent := out.sent

	for {
		select {
		case r := <-p.done:
			return r.resp, r.err

		case err := <-sent:
			sent = nil

			if err != nil {
				return b.fail(p, &errors.ConnectionError{Reason: "send request", Err: err})
			}

		case <-ctx.Done():
			return b.abandon(ctx, p)
		}
	}
}

// fail resolves p with err if it is still pending. If something else
// resolved it first, that resolution is returned instead.
func (b *Bridge) fail(p *pendingRequest, err error) (*protocol.Response, error) {
	if b.table.claim(p.id) != nil {
		p.resolve(result{err: err})
	}

	r := <-p.done

	return r.resp, r.err
}

// abandon resolves p with the caller's ctx error; other requests are
// unaffected.
func (b *Bridge) abandon(ctx context.Context, p *pendingRequest) (*protocol.Response, error) {
	if b.table.claim(p.id) != nil {
		b.log.Debug("Request cancelled by caller", "request_id", p.id, "method", p.method)
		p.resolve(result{err: ctx.Err()})
	}

	r := <-p.done

	return r.resp, r.err
}

// register inserts a pending request against the current connection.
// Holding mu while inserting guarantees no entry is added after a drain.
func (b *Bridge) register(
	via *connection,
	id string,
	method string,
	params any,
	timeout time.Duration,
) (*pendingRequest, *connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn := b.conn

	switch {
	case via == nil && b.state == StateConnected && conn != nil:
	case via != nil && via == conn && b.state == StateConnecting:
	default:
		return nil, nil, &errors.ConnectionError{Reason: unreachableReason, Err: errors.ErrNotConnected}
	}

	p := newPendingRequest(id, method, params, time.Now(), timeout)
	if !b.table.insert(p) {
		return nil, nil, fmt.Errorf("duplicate request id %s", id)
	}

	return p, conn, nil
}
