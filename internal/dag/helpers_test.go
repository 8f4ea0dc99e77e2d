package dag

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/startgrid/internal/executor"
	"github.com/vk/startgrid/internal/testutil"
)

const testTimeout = 5 * time.Second

func newTestExecutors(t *testing.T) *Executors {
	t.Helper()
	pool, err := executor.NewPool(4)
	require.NoError(t, err)
	serial := executor.NewSerial(slog.Default())
	t.Cleanup(func() {
		_ = pool.Close()
		_ = serial.Close()
	})
	return &Executors{Pool: pool, Serial: serial}
}

// runToFinish starts n and blocks until it reports completion.
func runToFinish(t *testing.T, ctx context.Context, n Node) {
	t.Helper()
	done := make(chan string, 1)
	n.OnFinish(func(name string) { done <- name })
	require.NoError(t, n.Start(ctx))
	testutil.WaitFor(t, done, testTimeout)
}
