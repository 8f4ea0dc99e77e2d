package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerial_RunsInSubmissionOrder(t *testing.T) {
	t.Parallel()
	s := NewSerial(nil)

	var mu sync.Mutex
	var order []int
	var running atomic.Int32
	var overlapped atomic.Bool

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Submit(func() {
			if running.Add(1) > 1 {
				overlapped.Store(true)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
		}))
	}
	require.NoError(t, s.Close())

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.False(t, overlapped.Load(), "serial tasks must never overlap")
}

func TestSerial_SubmitAfterClose(t *testing.T) {
	t.Parallel()
	s := NewSerial(nil)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Submit(func() {}), ErrClosed)
}

func TestSerial_SurvivesPanickingTask(t *testing.T) {
	t.Parallel()
	s := NewSerial(nil)

	ran := make(chan struct{})
	require.NoError(t, s.Submit(func() { panic("boom") }))
	require.NoError(t, s.Submit(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task after a panic never ran")
	}
	require.NoError(t, s.Close())
}

func TestPool_RunsConcurrently(t *testing.T) {
	t.Parallel()
	p, err := NewPool(4)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Cap())

	var wg sync.WaitGroup
	var running, peak atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	assert.Greater(t, peak.Load(), int32(1))
	require.NoError(t, p.Close())
}

// A saturated pool must still accept submissions from its own workers.
func TestPool_SubmitFromWorkerDoesNotDeadlock(t *testing.T) {
	t.Parallel()
	p, err := NewPool(1)
	require.NoError(t, err)

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		require.NoError(t, p.Submit(func() { close(done) }))
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested submit deadlocked")
	}
	require.NoError(t, p.Close())
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	t.Parallel()
	p, err := NewPool(2)
	require.NoError(t, err)

	var count atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	require.NoError(t, p.Close())
	assert.Equal(t, int32(20), count.Load())
	assert.ErrorIs(t, p.Submit(func() {}), ErrClosed)
}

func TestNewPool_DefaultsToCPUCount(t *testing.T) {
	t.Parallel()
	p, err := NewPool(0)
	require.NoError(t, err)
	defer p.Close()
	assert.Positive(t, p.Cap())
}
