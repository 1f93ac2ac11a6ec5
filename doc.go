// Package mcpunity connects Go programs to the Unity editor through the
// MCP Unity plugin.
//
// A Bridge owns one WebSocket connection to the editor and multiplexes any
// number of concurrent requests over it. Each request is correlated with its
// reply by id and resolves exactly once: with the reply, with a typed failure
// reported by Unity, with a timeout, or with a connection error when the
// bridge stops or the connection drops.
//
// # Basic Usage
//
//	b := mcpunity.NewBridge(mcpunity.WithLogger(slog.Default()))
//	if err := b.Start(ctx, "my-client"); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Stop()
//
//	resp, err := b.FetchResource(ctx, "get_menu_items", nil, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Payload["menuItems"])
//
// Or let WithBridge manage the lifecycle:
//
//	err := mcpunity.WithBridge(ctx, "my-client", func(b *mcpunity.Bridge) error {
//	    _, err := b.SendRequest(ctx, "notify_message", map[string]any{
//	        "message": "hello from Go",
//	        "type":    "info",
//	    }, 0)
//	    return err
//	})
//
// # Error Handling
//
// Failures are typed so callers can tell them apart:
//
//	if _, err := b.SendRequest(ctx, "execute_menu_item", params, 0); err != nil {
//	    var toolErr *mcpunity.ToolExecutionError
//	    if errors.As(err, &toolErr) {
//	        log.Printf("Unity refused: %s", toolErr.Message)
//	    }
//	    if errors.Is(err, mcpunity.ErrRequestTimeout) {
//	        log.Print("Unity did not answer in time")
//	    }
//	}
//
// # Requirements
//
// The Unity editor must be running with the MCP Unity plugin enabled. The
// plugin listens on ws://localhost:8090/McpUnity unless configured otherwise.
package mcpunity
