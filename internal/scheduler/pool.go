package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// task is a unit of work queued on a pool.
type task struct {
	ctx  context.Context
	job  Job
	done func() // runs after the job returns or panics; may be nil
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	Workers   int
	Idle      int
	Queued    int
	Processed uint64
	Panicked  uint64
}

// pool is a worker pool fed by an unbounded FIFO queue.
//
// Workers are started on demand: always while fewer than min are running,
// and up to max while no worker is idle. With a positive keepAlive, an idle
// worker above min exits after waiting that long for work.
type pool struct {
	name      string
	min       int
	max       int
	keepAlive time.Duration
	logger    Logger
	ctx       context.Context

	mu      sync.Mutex
	queue   []task
	workers int
	idle    int
	closed  bool
	wake    chan struct{}
	wg      sync.WaitGroup

	processed atomic.Uint64
	panicked  atomic.Uint64
}

func newPool(ctx context.Context, name string, minWorkers, maxWorkers int, keepAlive time.Duration, logger Logger) *pool {
	return &pool{
		name:      name,
		min:       minWorkers,
		max:       maxWorkers,
		keepAlive: keepAlive,
		logger:    logger,
		ctx:       ctx,
		wake:      make(chan struct{}, maxWorkers),
	}
}

// submit queues t and starts a worker if the sizing rules allow one.
func (p *pool) submit(t task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrNotActive
	}

	p.queue = append(p.queue, t)

	if p.workers < p.min || (p.idle == 0 && p.workers < p.max) {
		p.workers++
		p.wg.Add(1)
		go p.worker()
		return nil
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *pool) worker() {
	defer p.wg.Done()

	for {
		t, ok := p.next()
		if !ok {
			return
		}
		p.run(t)
	}
}

// next blocks until a task is available. It returns false when the pool
// is closed or the worker retired after keepAlive.
func (p *pool) next() (task, bool) {
	p.mu.Lock()
	for {
		if p.closed {
			p.workers--
			p.mu.Unlock()
			return task{}, false
		}

		if len(p.queue) > 0 {
			t := p.queue[0]
			p.queue[0] = task{}
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return t, true
		}

		p.idle++
		p.mu.Unlock()
		timedOut := p.wait()
		p.mu.Lock()
		p.idle--

		if timedOut && len(p.queue) == 0 && p.workers > p.min {
			p.workers--
			p.mu.Unlock()
			return task{}, false
		}
	}
}

// wait parks an idle worker. It reports true when keepAlive elapsed.
func (p *pool) wait() bool {
	if p.keepAlive <= 0 {
		select {
		case <-p.wake:
		case <-p.ctx.Done():
		}
		return false
	}

	timer := time.NewTimer(p.keepAlive)
	defer timer.Stop()

	select {
	case <-p.wake:
		return false
	case <-p.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// run executes one task, recovering a panicking job so the worker survives.
func (p *pool) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("job panicked",
				"pool", p.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if t.done != nil {
			t.done()
		}
	}()

	// Cancelled while queued: never start it.
	if t.ctx.Err() != nil {
		return
	}

	p.processed.Add(1)
	t.job(t.ctx)
}

// shutdown closes the pool and drops queued tasks. It returns the number
// of tasks that never ran. Parked workers are released by the pool
// context, which the caller cancels.
func (p *pool) shutdown() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}
	p.closed = true
	dropped := len(p.queue)
	p.queue = nil
	return dropped
}

// waitIdle blocks until every worker has exited or ctx expires.
func (p *pool) waitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		Workers:   p.workers,
		Idle:      p.idle,
		Queued:    len(p.queue),
		Processed: p.processed.Load(),
		Panicked:  p.panicked.Load(),
	}
}
