package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Job is a unit of background work. ctx is cancelled when the job is
// cancelled through its owner or when the scheduler is deactivated.
type Job func(ctx context.Context)

// Owner identifies the module that scheduled a job.
type Owner string

// Scheduler runs immediate, delayed and repeating jobs.
//
// Thread Safety: all methods are safe for concurrent use.
type Scheduler struct {
	logger Logger

	mu        sync.RWMutex // guards the lifecycle fields below
	active    bool
	cfg       Config
	ctx       context.Context
	cancel    context.CancelFunc
	immediate *pool
	scheduled *pool

	jobsMu sync.Mutex
	jobs   map[Owner][]*handle
}

// New creates an inactive scheduler. Call Activate before submitting jobs.
func New(logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		logger: logger,
		jobs:   make(map[Owner][]*handle),
	}
}

// Activate creates both pools. Unusable sizing values fall back to their
// defaults and are logged.
func (s *Scheduler) Activate(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrAlreadyActive
	}

	cfg = cfg.normalise(s.logger)
	ctx, cancel := context.WithCancel(context.Background())

	s.cfg = cfg
	s.ctx = ctx
	s.cancel = cancel
	s.immediate = newPool(ctx, "immediate", cfg.MinPoolSize, cfg.MaxPoolSize, cfg.KeepAlive, s.logger)
	s.scheduled = newPool(ctx, "scheduled", cfg.BackgroundPoolSize, cfg.BackgroundPoolSize, 0, s.logger)
	s.active = true

	s.logger.Info("scheduler activated",
		"min_pool_size", cfg.MinPoolSize,
		"max_pool_size", cfg.MaxPoolSize,
		"keep_alive", cfg.KeepAlive,
		"background_pool_size", cfg.BackgroundPoolSize,
	)
	return nil
}

// Deactivate stops both pools. Running jobs see their context cancelled,
// queued jobs are dropped and every delayed or repeating job is
// forgotten. It waits for workers to exit until ctx expires.
func (s *Scheduler) Deactivate(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	immediate, scheduled, cancel := s.immediate, s.scheduled, s.cancel
	s.mu.Unlock()

	s.jobsMu.Lock()
	jobs := s.jobs
	s.jobs = make(map[Owner][]*handle)
	s.jobsMu.Unlock()

	for _, handles := range jobs {
		for _, h := range handles {
			h.stop()
		}
	}

	dropped := immediate.shutdown() + scheduled.shutdown()
	cancel()

	err := errors.Join(immediate.waitIdle(ctx), scheduled.waitIdle(ctx))
	if err != nil {
		s.logger.Warn("scheduler workers still running after deactivate", "error", err)
	}

	s.logger.Info("scheduler deactivated", "dropped_jobs", dropped, "owners_cancelled", len(jobs))
	return err
}

// Active reports whether the scheduler accepts jobs.
func (s *Scheduler) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Config returns the effective (normalised) configuration of the last
// activation.
func (s *Scheduler) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Submit queues job on the immediate pool.
func (s *Scheduler) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active {
		return ErrNotActive
	}
	return s.immediate.submit(task{ctx: s.ctx, job: job})
}

// SubmitDelayed runs job once on the scheduled pool after delay. The job is
// recorded under owner until it completes or is cancelled.
func (s *Scheduler) SubmitDelayed(owner Owner, job Job, delay time.Duration) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active {
		return ErrNotActive
	}

	h := s.track(owner)
	p := s.scheduled

	fire := func() {
		err := p.submit(task{
			ctx: h.ctx,
			job: job,
			done: func() {
				s.untrack(h)
				h.cancel()
			},
		})
		if err != nil {
			s.untrack(h)
		}
	}
	h.schedule(delay, fire)
	return nil
}

// SubmitRepeating runs job on the scheduled pool immediately and then
// again interval after each run completes (fixed delay), until the owner's
// jobs are cancelled or the scheduler is deactivated.
func (s *Scheduler) SubmitRepeating(owner Owner, job Job, interval time.Duration) error {
	if job == nil {
		return ErrNilJob
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active {
		return ErrNotActive
	}

	h := s.track(owner)
	p := s.scheduled

	var fire func()
	fire = func() {
		err := p.submit(task{
			ctx: h.ctx,
			job: job,
			done: func() {
				h.schedule(interval, fire)
			},
		})
		if err != nil {
			s.untrack(h)
		}
	}
	h.schedule(0, fire)
	return nil
}

// CancelJobs cancels every delayed or repeating job recorded under owner.
// Jobs that have not started never run; running jobs see their context
// cancelled. Unknown owners are ignored.
func (s *Scheduler) CancelJobs(owner Owner) {
	s.jobsMu.Lock()
	handles := s.jobs[owner]
	delete(s.jobs, owner)
	s.jobsMu.Unlock()

	for _, h := range handles {
		h.stop()
	}

	if len(handles) > 0 {
		s.logger.Debug("cancelled jobs", "owner", string(owner), "count", len(handles))
	}
}

// ContainsJobs reports whether owner has outstanding delayed or repeating
// jobs.
func (s *Scheduler) ContainsJobs(owner Owner) bool {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	_, ok := s.jobs[owner]
	return ok
}

// Stats returns the state of the immediate and scheduled pools.
func (s *Scheduler) Stats() (immediate, scheduled PoolStats) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.immediate == nil {
		return PoolStats{}, PoolStats{}
	}
	return s.immediate.stats(), s.scheduled.stats()
}

// track creates a handle for owner and records it. Callers hold s.mu.
func (s *Scheduler) track(owner Owner) *handle {
	ctx, cancel := context.WithCancel(s.ctx)
	h := &handle{owner: owner, ctx: ctx, cancel: cancel}

	s.jobsMu.Lock()
	s.jobs[owner] = append(s.jobs[owner], h)
	s.jobsMu.Unlock()
	return h
}

// untrack forgets h. The owner entry disappears with its last handle.
func (s *Scheduler) untrack(h *handle) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	handles := s.jobs[h.owner]
	for i, candidate := range handles {
		if candidate != h {
			continue
		}
		remaining := make([]*handle, 0, len(handles)-1)
		remaining = append(remaining, handles[:i]...)
		remaining = append(remaining, handles[i+1:]...)
		if len(remaining) == 0 {
			delete(s.jobs, h.owner)
		} else {
			s.jobs[h.owner] = remaining
		}
		return
	}
}

// handle is the scheduler's record of one delayed or repeating job.
type handle struct {
	owner  Owner
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

// schedule arms the timer unless the handle was cancelled.
func (h *handle) schedule(delay time.Duration, fire func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return
	}
	h.timer = time.AfterFunc(delay, fire)
}

// stop cancels the job context and disarms a pending timer.
func (h *handle) stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
	}
}
