// Package scheduler runs background jobs for the automation core.
//
// It owns two pools:
//
//   - The immediate pool runs jobs handed over with Submit as soon as a
//     worker is free. Workers are started lazily up to MaxPoolSize; idle
//     workers above MinPoolSize retire after KeepAlive.
//   - The scheduled pool runs delayed and repeating jobs on a fixed number
//     of workers (BackgroundPoolSize).
//
// # Ownership
//
// Delayed and repeating jobs are recorded against an Owner. The hosting
// layer cancels everything a module scheduled with CancelJobs when that
// module stops; the scheduler never watches owner lifecycles itself.
//
//	s := scheduler.New(logger)
//	if err := s.Activate(scheduler.DefaultConfig()); err != nil {
//	    return err
//	}
//	s.SubmitRepeating("automation.timers", poll, time.Minute)
//	...
//	s.CancelJobs("automation.timers")
//
// # Interruption
//
// Every job receives a context. It is cancelled when the job's owner is
// cancelled or when the scheduler is deactivated; long running jobs should
// watch ctx.Done().
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package scheduler
