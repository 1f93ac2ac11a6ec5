package mcpunity

import (
	"context"
	"fmt"
)

// WithBridge manages bridge lifecycle with automatic cleanup.
//
// This helper creates a bridge, starts it as clientName, executes the
// callback function, and stops the bridge when done. If the callback returns
// an error, it is returned to the caller.
//
// Example usage:
//
//	err := mcpunity.WithBridge(ctx, "my-client", func(b *mcpunity.Bridge) error {
//	    resp, err := b.FetchResource(ctx, "get_hierarchy", nil, 0)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(resp.Payload["hierarchy"])
//	    return nil
//	},
//	    mcpunity.WithLogger(log),
//	)
func WithBridge(ctx context.Context, clientName string, fn func(*Bridge) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b := NewBridge(opts...)
	if err := b.Start(ctx, clientName); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	defer b.Stop()

	return fn(b)
}
