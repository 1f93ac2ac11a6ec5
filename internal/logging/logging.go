// Package logging holds logger helpers shared across the module.
package logging

import (
	"io"
	"log/slog"
)

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
