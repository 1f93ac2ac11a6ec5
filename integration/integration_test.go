//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	mcpunity "github.com/dsarno/mcp-unity"
)

// unityURL is the editor endpoint, overridable with MCP_UNITY_URL.
func unityURL() string {
	if url := os.Getenv("MCP_UNITY_URL"); url != "" {
		return url
	}

	return mcpunity.DefaultURL
}

// startBridge connects to a running editor, skipping the test when none is reachable.
func startBridge(t *testing.T, opts ...mcpunity.Option) *mcpunity.Bridge {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	b := mcpunity.NewBridge(append([]mcpunity.Option{mcpunity.WithURL(unityURL())}, opts...)...)

	if err := b.Start(ctx, "mcp-unity-integration"); err != nil {
		skipIfUnityNotRunning(t, err)
		t.Fatalf("Start failed: %v", err)
	}

	t.Cleanup(b.Stop)

	return b
}

// skipIfUnityNotRunning skips the test if the error indicates no editor is listening.
func skipIfUnityNotRunning(t *testing.T, err error) {
	t.Helper()

	var connErr *mcpunity.ConnectionError
	if errors.As(err, &connErr) && !errors.Is(err, mcpunity.ErrHandshakeRejected) {
		t.Skipf("Unity editor not reachable at %s: %v", unityURL(), err)
	}
}
