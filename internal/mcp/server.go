package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dsarno/mcp-unity/internal/logging"
	"github.com/dsarno/mcp-unity/internal/protocol"
)

const (
	// ServerName is reported to MCP clients during initialization.
	ServerName = "MCP Unity Server"
	// ServerVersion is reported to MCP clients during initialization.
	ServerVersion = "1.0.0"

	// UnknownClientName is used when the MCP client does not name itself.
	UnknownClientName = "Unknown MCP Client"
)

// Bridge is the part of the Unity bridge the handlers depend on.
type Bridge interface {
	IsConnected() bool
	SendRequest(ctx context.Context, method string, params any, timeout time.Duration) (*protocol.Response, error)
	FetchResource(ctx context.Context, method string, params any, timeout time.Duration) (*protocol.Response, error)
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	Logger *slog.Logger

	// OnClientInitialized is called once an MCP client finishes initializing,
	// with the name the client reported.
	OnClientInitialized func(ctx context.Context, clientName string)
}

// handlers carries the dependencies shared by every tool and resource.
type handlers struct {
	bridge Bridge
	log    *slog.Logger
}

// NewServer builds an MCP server exposing every Unity tool and resource.
func NewServer(bridge Bridge, options *ServerOptions) *mcp.Server {
	if options == nil {
		options = &ServerOptions{}
	}

	log := options.Logger
	if log == nil {
		log = logging.Nop()
	}

	h := &handlers{bridge: bridge, log: log}

	serverOpts := &mcp.ServerOptions{}
	if options.OnClientInitialized != nil {
		notify := options.OnClientInitialized

		serverOpts.InitializedHandler = func(ctx context.Context, req *mcp.InitializedRequest) {
			name := ClientName(req.Session.InitializeParams())
			log.Info("MCP client initialized", "client", name)
			notify(ctx, name)
		}
	}

	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, serverOpts)

	h.registerTools(server)
	h.registerResources(server)

	return server
}

// ClientName returns the client name from the initialize parameters, or
// UnknownClientName when there is none.
func ClientName(params *mcp.InitializeParams) string {
	if params == nil || params.ClientInfo == nil || params.ClientInfo.Name == "" {
		return UnknownClientName
	}

	return params.ClientInfo.Name
}
