// Package deflow provides a schedule computation and dispatch engine for
// workflow triggers. It turns a timing intent (a one-time absolute moment,
// a recurring interval, or a cron expression) into a persisted sequence of
// execution instants and fires a trigger exactly once per due instant.
//
// DeFlow is designed as a library, not a service. Import it, configure a
// store and a trigger, and let the dispatcher sweep due schedules on a tick.
//
// # Quick Start
//
//	eng, err := engine.New(
//	    engine.WithStore(memory.New()),
//	    engine.WithTrigger(dispatcher.TriggerFunc(runWorkflow)),
//	)
//
// # Architecture
//
// The engine is layered leaf-first: timefmt parses absolute datetime
// strings, cron parses and evaluates cron expressions, schedule owns the
// Spec/Schedule model, the input validator, the next-execution calculator,
// and the Store contract, and dispatcher sweeps due schedules and invokes
// the trigger. Store backends (memory, sqlite, postgres) implement a single
// persistence interface.
//
// All schedule IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers in the form "sch_01h2x...".
package deflow
