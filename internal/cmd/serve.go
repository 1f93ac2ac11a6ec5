package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dsarno/mcp-unity/internal/bridge"
	"github.com/dsarno/mcp-unity/internal/config"
	"github.com/dsarno/mcp-unity/internal/mcp"
	"github.com/dsarno/mcp-unity/internal/transport"
)

func serveStdio(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	return serve(ctx, cfg, stderr, &sdk.StdioTransport{})
}

// serve runs the MCP server on t until the client goes away or ctx is done.
// The bridge to Unity is started once the MCP client has initialized, so the
// handshake can carry the client's name.
func serve(ctx context.Context, cfg *config.Config, stderr io.Writer, t sdk.Transport) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	// stdout carries the MCP stream, so logs go to stderr only.
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	url, err := cfg.Endpoint()
	if err != nil {
		return err
	}

	b := bridge.New(transport.NewWebSocketDialer(log, url), &bridge.Options{
		Logger:           log,
		RequestTimeout:   cfg.RequestTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		SweepInterval:    cfg.SweepInterval,
	})

	var wg sync.WaitGroup

	defer func() {
		b.Stop()
		wg.Wait()
	}()

	server := mcp.NewServer(b, &mcp.ServerOptions{
		Logger: log.With("component", "mcp"),
		OnClientInitialized: func(_ context.Context, clientName string) {
			wg.Go(func() {
				if err := b.Start(ctx, clientName); err != nil {
					log.Error("Failed to connect to Unity", "url", url, "error", err)
				}
			})
		},
	})

	log.Info("MCP Unity server starting", "unity_url", url)

	if err := server.Run(ctx, t); err != nil && !stderrors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}

	log.Info("MCP Unity server stopped")

	return nil
}
