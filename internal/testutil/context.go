package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/vk/startgrid/internal/ctxlog"
)

// NewTestContext returns a context carrying a debug-level text logger that
// writes into the returned buffer. The buffer is dumped on test failure.
func NewTestContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("captured logs:\n%s", buf.String())
		}
	})
	return ctxlog.WithLogger(context.Background(), logger), buf
}
