// Command mcp-unity is an MCP server that exposes the Unity editor to MCP
// clients over stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dsarno/mcp-unity/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx)

	stop()
	os.Exit(code)
}
