// Package automation provides the rule engine for Gray Logic automation.
//
// Rules are small Lua scripts with triggers. They are grouped into rule
// models (YAML sources named "*.rules") that are persisted in SQLite and
// cached by the ModelRegistry.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                   Engine (engine.go)                     │
//	│                                                          │
//	│  item registry ──▶ ItemAdded / ItemRemoved / AllChanged  │
//	│  items         ──▶ StateChanged / StateUpdated           │
//	│  event bus     ──▶ ReceiveCommand                        │
//	│  models        ──▶ ModelChanged                          │
//	│                         │                                │
//	│                         ▼                                │
//	│  ┌────────────────┐   GetRules   ┌───────────────────┐   │
//	│  │ TriggerManager │◀────────────│ one job per rule  │   │
//	│  │ (triggers.go)  │             │ on the scheduler  │   │
//	│  └────────────────┘             └─────────┬─────────┘   │
//	│                                           ▼             │
//	│                    EvaluationContext + script engine     │
//	└──────────────────────────────────────────────────────────┘
//
// # Trigger Types
//
//   - startup: runs once per activation, then is deregistered (even on failure)
//   - shutdown: runs synchronously on Deactivate
//   - change: item state changed; previousState is bound
//   - update: item state updated, changed or not
//   - command: item received a command; receivedCommand is bound
//   - timer: cron schedule, jobs owned by TimerOwner
//
// # Thread Safety
//
// Engine, TriggerManager and ModelRegistry are safe for concurrent use.
// Rule executions never share an evaluation context.
//
// # Usage
//
//	models := automation.NewModelRegistry(automation.NewSQLiteRepository(db))
//	if err := models.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	engine, err := automation.NewEngine(automation.Options{
//	    Enabled:  cfg.Automation.Enabled,
//	    Items:    items,
//	    Models:   models,
//	    Triggers: automation.NewTriggerManager(),
//	    Scripts:  script.NewEngine(log),
//	    Context:  automation.NewDefaultContextProvider(bus, items, log),
//	    Commands: bus,
//	    Jobs:     sched,
//	    Logger:   log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := engine.Activate(ctx); err != nil {
//	    return err
//	}
//	defer engine.Deactivate(ctx)
package automation
