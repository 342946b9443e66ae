package tiptesting

import (
	"io"
	"log/slog"
	"os"

	"github.com/solstream/tipjar/utils/pkg/logger"
)

// NewLogger returns a logger for tests. Output is discarded unless DEBUG is
// set: DEBUG=1 enables info, DEBUG=2 enables debug.
func NewLogger() *slog.Logger {
	switch os.Getenv("DEBUG") {
	case "2":
		return logger.New(true)
	case "1":
		return logger.New(false)
	default:
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
