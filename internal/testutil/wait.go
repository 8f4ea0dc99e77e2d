package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WaitFor receives from ch or fails the test after timeout.
func WaitFor[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for channel", "after %s", timeout)
	}
	var zero T
	return zero
}

// WaitN receives n values from ch or fails the test after timeout.
func WaitN[T any](t *testing.T, ch <-chan T, n int, timeout time.Duration) []T {
	t.Helper()
	deadline := time.After(timeout)
	out := make([]T, 0, n)
	for len(out) < n {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-deadline:
			require.FailNow(t, "timed out waiting for channel", "got %d of %d values after %s", len(out), n, timeout)
		}
	}
	return out
}
