package automation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/gray-logic-automation/internal/scheduler"
)

// TimerOwner owns every timer-trigger job the engine schedules.
const TimerOwner scheduler.Owner = "automation.timers"

// armTimers cancels all timer jobs and schedules the next firing of every
// registered timer trigger. Jobs from an earlier arming stop rescheduling
// themselves once the generation moves on.
func (e *Engine) armTimers() {
	e.timerMu.Lock()
	defer e.timerMu.Unlock()

	gen := e.timerGen.Add(1)
	e.opts.Jobs.CancelJobs(TimerOwner)
	if !e.running.Load() {
		return
	}

	now := time.Now()
	armed := 0
	for _, rule := range e.opts.Triggers.GetRules(TriggerTimer, Query{}) {
		for _, t := range rule.Triggers {
			if t.Type != TriggerTimer {
				continue
			}
			sched, err := cronParser.Parse(t.Cron)
			if err != nil {
				e.logger.Error("invalid cron expression", "rule", rule.Name, "cron", t.Cron, "error", err)
				continue
			}
			e.scheduleTimer(gen, rule, sched, now)
			armed++
		}
	}
	if armed > 0 {
		e.logger.Debug("timer triggers armed", "count", armed)
	}
}

// scheduleTimer submits the firing of rule that follows from.
func (e *Engine) scheduleTimer(gen uint64, rule *Rule, sched cron.Schedule, from time.Time) {
	next := sched.Next(from)
	if next.IsZero() {
		return
	}

	job := func(ctx context.Context) {
		if e.timerGen.Load() != gen || !e.running.Load() {
			return
		}
		e.scheduleTimer(gen, rule, sched, next)
		e.run(ctx, rule, TriggerTimer, nil)
	}

	delay := max(time.Until(next), 0)
	if err := e.opts.Jobs.SubmitDelayed(TimerOwner, job, delay); err != nil {
		e.logger.Warn("scheduling timer trigger failed", "rule", rule.Name, "error", err)
	}
}
