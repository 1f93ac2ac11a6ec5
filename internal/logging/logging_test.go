package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	log := Nop()
	require.NotNil(t, log)

	require.NotPanics(t, func() {
		log.Error("discarded", "key", "value")
	})
	require.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}
