package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out    Output
	err    error
	closed atomic.Bool
	calls  atomic.Int32
	last   [5]float32
	mu     sync.Mutex
}

func (f *fakeRunner) Infer(_ context.Context, _ []float32, _, _ int, params [5]float32) (Output, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = params
	f.mu.Unlock()
	return f.out, f.err
}

func (f *fakeRunner) Close() error {
	f.closed.Store(true)
	return nil
}

func fakePool(t *testing.T, size int) (*Pool, []*fakeRunner) {
	t.Helper()
	var made []*fakeRunner
	pool, err := newPool(size, func() (runner, error) {
		r := &fakeRunner{}
		made = append(made, r)
		return r, nil
	})
	require.NoError(t, err)
	return pool, made
}

func TestNewPool_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		pool, made := fakePool(t, size)
		assert.Equal(t, 1, pool.Size())
		assert.Len(t, made, 1)
		require.NoError(t, pool.Close())
	}
}

func TestNewPool_OpenFailureCleansUp(t *testing.T) {
	var made []*fakeRunner
	_, err := newPool(3, func() (runner, error) {
		if len(made) == 2 {
			return nil, errors.New("boom")
		}
		r := &fakeRunner{}
		made = append(made, r)
		return r, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating session 2")
	for _, r := range made {
		assert.True(t, r.closed.Load())
	}
}

func TestNewPool_ModelNotFound(t *testing.T) {
	_, err := NewPool("../testdata/nonexistent.onnx", 2, 0)
	require.Error(t, err)
}

func TestPool_AcquireRelease(t *testing.T) {
	pool, _ := fakePool(t, 2)
	defer func() { _ = pool.Close() }()

	ctx := context.Background()
	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	s2, err := pool.Acquire(ctx)
	require.NoError(t, err)

	// Pool is exhausted; a short deadline must expire.
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(s1)
	pool.Release(s2)
	pool.Release(nil)

	s3, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(s3)
}

func TestPool_Concurrent(t *testing.T) {
	pool, _ := fakePool(t, 3)
	defer func() { _ = pool.Close() }()

	var inUse, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := pool.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			n := inUse.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inUse.Add(-1)
			pool.Release(s)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPool_Close(t *testing.T) {
	pool, made := fakePool(t, 2)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	// A session released after Close is closed, not returned.
	pool.Release(held)
	for _, r := range made {
		assert.True(t, r.closed.Load())
	}
}
