package mcp

import (
	"context"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/dsarno/mcp-unity/internal/protocol"
)

type bridgeCall struct {
	resource bool
	method   string
	params   map[string]any
	timeout  time.Duration
}

type fakeBridge struct {
	mu        sync.Mutex
	connected bool
	calls     []bridgeCall
	reply     func(method string) (*protocol.Response, error)
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{connected: true}
}

func (f *fakeBridge) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connected
}

func (f *fakeBridge) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = v
}

func (f *fakeBridge) onCall(reply func(method string) (*protocol.Response, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reply = reply
}

func (f *fakeBridge) SendRequest(
	_ context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*protocol.Response, error) {
	return f.record(false, method, params, timeout)
}

func (f *fakeBridge) FetchResource(
	_ context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*protocol.Response, error) {
	return f.record(true, method, params, timeout)
}

func (f *fakeBridge) record(resource bool, method string, params any, timeout time.Duration) (*protocol.Response, error) {
	f.mu.Lock()
	p, _ := params.(map[string]any)
	f.calls = append(f.calls, bridgeCall{resource: resource, method: method, params: p, timeout: timeout})
	reply := f.reply
	f.mu.Unlock()

	if reply == nil {
		return &protocol.Response{ID: "id", Success: true, Payload: map[string]any{}}, nil
	}

	return reply(method)
}

func (f *fakeBridge) recorded() []bridgeCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]bridgeCall(nil), f.calls...)
}

func (f *fakeBridge) lastCall(t *testing.T) bridgeCall {
	t.Helper()

	calls := f.recorded()
	require.NotEmpty(t, calls, "expected a bridge call")

	return calls[len(calls)-1]
}

func replyWith(message string, payload map[string]any) func(string) (*protocol.Response, error) {
	return func(string) (*protocol.Response, error) {
		return &protocol.Response{ID: "id", Success: true, Message: message, Payload: payload}, nil
	}
}

func failWith(err error) func(string) (*protocol.Response, error) {
	return func(string) (*protocol.Response, error) {
		return nil, err
	}
}

// connectClient serves NewServer over in-memory transports and returns a
// connected client session.
func connectClient(t *testing.T, bridge Bridge, opts *ServerOptions) *mcpgo.ClientSession {
	t.Helper()

	ctx := context.Background()
	clientTransport, serverTransport := mcpgo.NewInMemoryTransports()

	serverSession, err := NewServer(bridge, opts).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callTool(t *testing.T, session *mcpgo.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()

	res, err := session.CallTool(context.Background(), &mcpgo.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcpgo.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	return text.Text, res.IsError
}

func readResource(t *testing.T, session *mcpgo.ClientSession, uri string) (string, error) {
	t.Helper()

	res, err := session.ReadResource(context.Background(), &mcpgo.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}

	require.Len(t, res.Contents, 1)
	require.Equal(t, uri, res.Contents[0].URI)
	require.Equal(t, "application/json", res.Contents[0].MIMEType)

	return res.Contents[0].Text, nil
}
