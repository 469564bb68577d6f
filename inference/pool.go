package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Pool hands out model sessions to concurrent callers.
type Pool struct {
	sessions chan runner
	size     int
	mu       sync.Mutex
	closed   bool
}

// NewPool creates a pool of size ONNX sessions for modelPath.
func NewPool(modelPath string, size, intraOpThreads int) (*Pool, error) {
	return newPool(size, func() (runner, error) {
		return NewSession(modelPath, intraOpThreads)
	})
}

func newPool(size int, open func() (runner, error)) (*Pool, error) {
	if size <= 0 {
		size = 1
	}

	pool := &Pool{
		sessions: make(chan runner, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		s, err := open()
		if err != nil {
			_ = pool.Close() // Best-effort cleanup; original error takes precedence
			return nil, fmt.Errorf("creating session %d: %w", i, err)
		}
		pool.sessions <- s
	}

	return pool, nil
}

// Acquire gets a session from the pool, blocking until one is free or ctx
// is done.
func (p *Pool) Acquire(ctx context.Context) (runner, error) {
	select {
	case s, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a session to the pool. Sessions released after Close are
// closed instead.
func (p *Pool) Release(s runner) {
	if s == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = s.Close()
		return
	}

	select {
	case p.sessions <- s:
	default:
		_ = s.Close() // Pool full; clean up excess session
	}
}

// Close closes all idle sessions in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sessions)
	p.mu.Unlock()

	var errs []error
	for s := range p.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Size returns the pool size.
func (p *Pool) Size() int {
	return p.size
}
