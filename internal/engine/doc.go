// Package engine executes appliance cycles for Washcycle Core.
//
// A loaded cycle runs one phase at a time. Each phase is expanded to a
// flat timeline of output events, then scheduled in fixed-size batches so
// that peak live-timer count stays bounded no matter how many events the
// phase contains.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────┐
//	│                 Engine (engine.go)                      │
//	│  Phase/cycle state machine, skip/stop, trigger latches  │
//	│        │                                                │
//	│        ▼ per phase                                      │
//	│  ┌──────────────────────────────────────────────┐      │
//	│  │  phaseRun (phase_run.go)                      │      │
//	│  │  1. Expand phase → timeline (cycle package)   │      │
//	│  │  2. Schedule batch i: one timer per event,    │      │
//	│  │     delay = fire_time − elapsed               │      │
//	│  │  3. Boundary timer → signal channel → driving │      │
//	│  │     goroutine loads batch i+1                 │      │
//	│  │  4. Dispatcher: set output, decrement counter │      │
//	│  └──────────────────────────────────────────────┘      │
//	│        │                                                │
//	│        ▼ poll each tick                                 │
//	│  triggerMonitor (trigger.go): sensor threshold with     │
//	│  cooldown window; fires at most once per phase per load │
//	└────────────────────────────────────────────────────────┘
//
// # Scheduling Model
//
// Two contexts: the driving goroutine owns all timer bookkeeping (batch
// advancement, phase sequencing, sensor polling); timer callbacks only
// write outputs, decrement the remaining-event counter and send on the
// boundary channel. Callbacks never allocate timers or take the run lock.
//
// Delays are always computed as fire_time minus elapsed-since-phase-start.
// A batch loaded late schedules its events relative to now, so events fire
// at their absolute offsets regardless of when their batch was loaded.
//
// # Thread Safety
//
// All exported Engine methods are safe for concurrent use. Skip and stop
// cancel live timers synchronously; the driving goroutine observes the
// request within one poll interval.
//
// # Usage
//
//	eng, err := engine.New(engine.Deps{
//	    Outputs: bank,
//	    Sensors: readings,
//	    Hub:     hub,
//	    Logger:  log,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if _, err := eng.Load(parsed); err != nil {
//	    return err
//	}
//	if err := eng.Run(ctx); err != nil {
//	    return err
//	}
package engine
