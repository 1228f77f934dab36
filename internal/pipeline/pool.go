package pipeline

import (
	"context"
	"errors"
	"sync"
)

type job func(ctx context.Context)

// Pool coordinates hotel workers with a bounded queue to avoid
// deadlocks.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	wg     sync.WaitGroup
}

// NewPool creates a pool with the given concurrency and queue size.
func NewPool(parent context.Context, concurrency, queueSize int) (*Pool, error) {
	if concurrency <= 0 || queueSize <= 0 {
		return nil, errors.New("pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, queueSize),
	}
	pool.start(concurrency)
	return pool, nil
}

func (p *Pool) start(concurrency int) {
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					job(p.ctx)
				}
			}
		}()
	}
}

// Submit schedules a job, rejecting if the context cancels.
func (p *Pool) Submit(ctx context.Context, fn job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- fn:
		return nil
	}
}

// Close stops accepting work, waits for in-flight jobs, then releases
// the workers.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}
