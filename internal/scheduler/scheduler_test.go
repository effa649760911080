package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ─── Test Helpers ───────────────────────────────────────────────────

// captureLogger records log calls for assertions.
type captureLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Warn(string, ...any)  {}
func (l *captureLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l *captureLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func setupScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s := New(nil)
	if err := s.Activate(DefaultConfig()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Deactivate(ctx) //nolint:errcheck // test cleanup
	})
	return s
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestSubmit_NotActive(t *testing.T) {
	s := New(nil)

	if err := s.Submit(func(context.Context) {}); !errors.Is(err, ErrNotActive) {
		t.Errorf("Submit() error = %v, want ErrNotActive", err)
	}
	if err := s.SubmitDelayed("owner", func(context.Context) {}, time.Millisecond); !errors.Is(err, ErrNotActive) {
		t.Errorf("SubmitDelayed() error = %v, want ErrNotActive", err)
	}
	if err := s.SubmitRepeating("owner", func(context.Context) {}, time.Millisecond); !errors.Is(err, ErrNotActive) {
		t.Errorf("SubmitRepeating() error = %v, want ErrNotActive", err)
	}
}

func TestActivate_Twice(t *testing.T) {
	s := setupScheduler(t)

	if err := s.Activate(DefaultConfig()); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Activate() error = %v, want ErrAlreadyActive", err)
	}
}

func TestActivate_InvalidConfigFallsBack(t *testing.T) {
	logger := &captureLogger{}
	s := New(logger)

	err := s.Activate(Config{MinPoolSize: -1, MaxPoolSize: 0, KeepAlive: 0, BackgroundPoolSize: 0})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	defer s.Deactivate(context.Background()) //nolint:errcheck // test cleanup

	got := s.Config()
	if got != DefaultConfig() {
		t.Errorf("Config() = %+v, want %+v", got, DefaultConfig())
	}
	if logger.errorCount() != 4 {
		t.Errorf("logged %d errors, want 4", logger.errorCount())
	}
}

func TestActivate_MaxBelowMin(t *testing.T) {
	s := New(nil)
	if err := s.Activate(Config{MinPoolSize: 8, MaxPoolSize: 2, KeepAlive: time.Second, BackgroundPoolSize: 1}); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	defer s.Deactivate(context.Background()) //nolint:errcheck // test cleanup

	if got := s.Config().MaxPoolSize; got != 8 {
		t.Errorf("MaxPoolSize = %d, want 8", got)
	}
}

func TestDeactivate_InterruptsRunningJobs(t *testing.T) {
	s := New(nil)
	if err := s.Activate(DefaultConfig()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	started := make(chan struct{})
	interrupted := make(chan struct{})
	err := s.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(interrupted)
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitFor(t, started, "job start")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	waitFor(t, interrupted, "job interruption")

	if s.Active() {
		t.Error("Active() = true after Deactivate")
	}
	if err := s.Submit(func(context.Context) {}); !errors.Is(err, ErrNotActive) {
		t.Errorf("Submit() after Deactivate error = %v, want ErrNotActive", err)
	}
}

func TestDeactivate_ForgetsOwners(t *testing.T) {
	s := New(nil)
	if err := s.Activate(DefaultConfig()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if err := s.SubmitDelayed("timers", func(context.Context) {}, time.Hour); err != nil {
		t.Fatalf("SubmitDelayed() error = %v", err)
	}
	if err := s.Deactivate(context.Background()); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if s.ContainsJobs("timers") {
		t.Error("ContainsJobs() = true after Deactivate")
	}
}

func TestReactivate(t *testing.T) {
	s := New(nil)
	for i := 0; i < 2; i++ {
		if err := s.Activate(DefaultConfig()); err != nil {
			t.Fatalf("Activate() #%d error = %v", i, err)
		}
		done := make(chan struct{})
		if err := s.Submit(func(context.Context) { close(done) }); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		waitFor(t, done, "job")
		if err := s.Deactivate(context.Background()); err != nil {
			t.Fatalf("Deactivate() error = %v", err)
		}
	}
}

// ─── Immediate Pool ─────────────────────────────────────────────────

func TestSubmit_RunsAllJobs(t *testing.T) {
	s := setupScheduler(t)

	const jobs = 200
	var wg sync.WaitGroup
	var count atomic.Int64
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		if err := s.Submit(func(context.Context) {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	waitFor(t, done, "all jobs")

	if got := count.Load(); got != jobs {
		t.Errorf("ran %d jobs, want %d", got, jobs)
	}
}

func TestSubmit_NilJob(t *testing.T) {
	s := setupScheduler(t)

	if err := s.Submit(nil); !errors.Is(err, ErrNilJob) {
		t.Errorf("Submit(nil) error = %v, want ErrNilJob", err)
	}
}

func TestSubmit_GrowsToMaxAndNoFurther(t *testing.T) {
	s := New(nil)
	cfg := Config{MinPoolSize: 1, MaxPoolSize: 3, KeepAlive: time.Minute, BackgroundPoolSize: 1}
	if err := s.Activate(cfg); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	release := make(chan struct{})
	defer func() {
		close(release)
		s.Deactivate(context.Background()) //nolint:errcheck // test cleanup
	}()

	var running atomic.Int64
	for i := 0; i < 5; i++ {
		if err := s.Submit(func(context.Context) {
			running.Add(1)
			<-release
		}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for running.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	immediate, _ := s.Stats()
	if immediate.Workers != 3 {
		t.Errorf("Workers = %d, want 3", immediate.Workers)
	}
	if immediate.Queued != 2 {
		t.Errorf("Queued = %d, want 2", immediate.Queued)
	}
	if got := running.Load(); got != 3 {
		t.Errorf("running = %d, want 3", got)
	}
}

func TestSubmit_IdleWorkersRetire(t *testing.T) {
	s := New(nil)
	cfg := Config{MinPoolSize: 1, MaxPoolSize: 4, KeepAlive: 20 * time.Millisecond, BackgroundPoolSize: 1}
	if err := s.Activate(cfg); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	defer s.Deactivate(context.Background()) //nolint:errcheck // test cleanup

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		if err := s.Submit(func(context.Context) {
			defer wg.Done()
			<-release
		}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	close(release)
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if immediate, _ := s.Stats(); immediate.Workers == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	immediate, _ := s.Stats()
	t.Errorf("Workers = %d after keepAlive, want 1", immediate.Workers)
}

func TestSubmit_PanicDoesNotKillWorker(t *testing.T) {
	logger := &captureLogger{}
	s := New(logger)
	if err := s.Activate(Config{MinPoolSize: 1, MaxPoolSize: 1, KeepAlive: time.Second, BackgroundPoolSize: 1}); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	defer s.Deactivate(context.Background()) //nolint:errcheck // test cleanup

	if err := s.Submit(func(context.Context) { panic("boom") }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	done := make(chan struct{})
	if err := s.Submit(func(context.Context) { close(done) }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitFor(t, done, "job after panic")

	immediate, _ := s.Stats()
	if immediate.Panicked != 1 {
		t.Errorf("Panicked = %d, want 1", immediate.Panicked)
	}
	if logger.errorCount() == 0 {
		t.Error("expected panic to be logged")
	}
}

// ─── Scheduled Pool ─────────────────────────────────────────────────

func TestSubmitDelayed_RunsOnceAfterDelay(t *testing.T) {
	s := setupScheduler(t)

	start := time.Now()
	done := make(chan struct{})
	var runs atomic.Int64
	err := s.SubmitDelayed("owner", func(context.Context) {
		if runs.Add(1) == 1 {
			close(done)
		}
	}, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("SubmitDelayed() error = %v", err)
	}
	if !s.ContainsJobs("owner") {
		t.Error("ContainsJobs() = false right after SubmitDelayed")
	}

	waitFor(t, done, "delayed job")
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("job ran after %v, want >= 30ms", elapsed)
	}

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if s.ContainsJobs("owner") {
		t.Error("ContainsJobs() = true after the only job completed")
	}
}

func TestSubmitRepeating_FixedDelay(t *testing.T) {
	s := setupScheduler(t)

	const interval = 20 * time.Millisecond
	var mu sync.Mutex
	var starts []time.Time
	done := make(chan struct{})

	err := s.SubmitRepeating("poller", func(context.Context) {
		mu.Lock()
		starts = append(starts, time.Now())
		n := len(starts)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond) // job duration
		if n == 3 {
			close(done)
		}
	}, interval)
	if err != nil {
		t.Fatalf("SubmitRepeating() error = %v", err)
	}

	waitFor(t, done, "three runs")
	s.CancelJobs("poller")

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// Fixed delay: next start is at least duration + interval after the previous start.
		if gap < 30*time.Millisecond {
			t.Errorf("gap between run %d and %d = %v, want >= 30ms", i-1, i, gap)
		}
	}
}

func TestSubmitRepeating_InvalidInterval(t *testing.T) {
	s := setupScheduler(t)

	if err := s.SubmitRepeating("owner", func(context.Context) {}, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("SubmitRepeating() error = %v, want ErrInvalidInterval", err)
	}
	if s.ContainsJobs("owner") {
		t.Error("ContainsJobs() = true after rejected submission")
	}
}

func TestCancelJobs_StopsFurtherRuns(t *testing.T) {
	s := setupScheduler(t)

	var runs atomic.Int64
	first := make(chan struct{})
	err := s.SubmitRepeating("owner", func(context.Context) {
		if runs.Add(1) == 1 {
			close(first)
		}
	}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("SubmitRepeating() error = %v", err)
	}
	waitFor(t, first, "first run")

	s.CancelJobs("owner")
	after := runs.Load()
	time.Sleep(60 * time.Millisecond)

	// At most one invocation may have been in flight when CancelJobs returned.
	if got := runs.Load(); got > after+1 {
		t.Errorf("runs grew from %d to %d after CancelJobs", after, got)
	}
	if s.ContainsJobs("owner") {
		t.Error("ContainsJobs() = true after CancelJobs")
	}
}

func TestCancelJobs_PreventsPendingDelayed(t *testing.T) {
	s := setupScheduler(t)

	var ran atomic.Bool
	if err := s.SubmitDelayed("owner", func(context.Context) { ran.Store(true) }, 30*time.Millisecond); err != nil {
		t.Fatalf("SubmitDelayed() error = %v", err)
	}
	s.CancelJobs("owner")
	time.Sleep(60 * time.Millisecond)

	if ran.Load() {
		t.Error("cancelled delayed job ran")
	}
}

func TestCancelJobs_InterruptsRunningJob(t *testing.T) {
	s := setupScheduler(t)

	started := make(chan struct{})
	interrupted := make(chan struct{})
	err := s.SubmitDelayed("owner", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(interrupted)
	}, 0)
	if err != nil {
		t.Fatalf("SubmitDelayed() error = %v", err)
	}
	waitFor(t, started, "job start")

	s.CancelJobs("owner")
	waitFor(t, interrupted, "interruption")
}

func TestCancelJobs_OnlyAffectsOwner(t *testing.T) {
	s := setupScheduler(t)

	if err := s.SubmitDelayed("a", func(context.Context) {}, time.Hour); err != nil {
		t.Fatalf("SubmitDelayed(a) error = %v", err)
	}
	if err := s.SubmitDelayed("b", func(context.Context) {}, time.Hour); err != nil {
		t.Fatalf("SubmitDelayed(b) error = %v", err)
	}

	s.CancelJobs("a")
	s.CancelJobs("unknown")

	if s.ContainsJobs("a") {
		t.Error("ContainsJobs(a) = true after cancel")
	}
	if !s.ContainsJobs("b") {
		t.Error("ContainsJobs(b) = false, want true")
	}
}

func TestOwnerBookkeeping_Concurrent(t *testing.T) {
	s := setupScheduler(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		owner := Owner(fmt.Sprintf("owner-%d", i%4))
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = s.SubmitDelayed(owner, func(context.Context) {}, time.Millisecond)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s.CancelJobs(owner)
				_ = s.ContainsJobs(owner)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		s.CancelJobs(Owner(fmt.Sprintf("owner-%d", i)))
	}
	for i := 0; i < 4; i++ {
		if s.ContainsJobs(Owner(fmt.Sprintf("owner-%d", i))) {
			t.Errorf("owner-%d still has jobs after final cancel", i)
		}
	}
}
