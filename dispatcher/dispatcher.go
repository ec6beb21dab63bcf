// Package dispatcher runs the periodic sweep that turns due schedules
// into trigger dispatches. Each due schedule is claimed atomically before
// its trigger runs, so an instant fires at most once even when sweeps
// overlap or multiple engine replicas share a durable store.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Legatia/DeFlow-sub000/hook"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// TriggerRequest carries everything a trigger needs to start the work a
// schedule points at.
type TriggerRequest struct {
	ScheduleID id.ScheduleID
	WorkflowID string
	NodeID     string

	// ExecutionCount is the number of successful fires before this one.
	ExecutionCount int

	// FiredAt is the instant the dispatch was claimed.
	FiredAt time.Time
}

// Trigger starts the downstream work for a claimed schedule. A returned
// error marks the dispatch as failed; it is recorded against the schedule
// and never surfaced to the schedule's creator.
type Trigger interface {
	Fire(ctx context.Context, req TriggerRequest) error
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc func(ctx context.Context, req TriggerRequest) error

// Fire implements Trigger.
func (f TriggerFunc) Fire(ctx context.Context, req TriggerRequest) error {
	return f(ctx, req)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTickInterval sets how often the dispatcher sweeps for due schedules.
func WithTickInterval(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.tickInterval = d }
}

// WithMaxConcurrentFires caps the number of trigger dispatches in flight.
func WithMaxConcurrentFires(n int) Option {
	return func(dp *Dispatcher) { dp.maxConcurrent = n }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(dp *Dispatcher) { dp.logger = logger }
}

// WithHooks sets the lifecycle hook registry.
func WithHooks(hooks *hook.Registry) Option {
	return func(dp *Dispatcher) { dp.hooks = hooks }
}

// WithClock sets the time source. Tests inject a fake clock here.
func WithClock(now func() time.Time) Option {
	return func(dp *Dispatcher) { dp.now = now }
}

// Dispatcher sweeps the registry on a tick loop and fires due schedules
// through the trigger.
type Dispatcher struct {
	registry *schedule.Registry
	trigger  Trigger
	hooks    *hook.Registry
	logger   *slog.Logger
	workerID id.WorkerID

	tickInterval  time.Duration
	maxConcurrent int
	now           func() time.Time

	sem    chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Dispatcher over the registry and trigger.
func New(registry *schedule.Registry, trigger Trigger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:      registry,
		trigger:       trigger,
		logger:        slog.Default(),
		workerID:      id.NewWorkerID(),
		tickInterval:  time.Second,
		maxConcurrent: 16,
		now:           func() time.Time { return time.Now().UTC() },
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.hooks == nil {
		d.hooks = hook.NewRegistry(d.logger)
	}
	d.sem = make(chan struct{}, d.maxConcurrent)
	return d
}

// WorkerID identifies this dispatcher instance in logs.
func (d *Dispatcher) WorkerID() id.WorkerID { return d.workerID }

// Start launches the sweep tick loop.
func (d *Dispatcher) Start(_ context.Context) error {
	d.wg.Add(1)
	go d.tickLoop()
	d.logger.Info("dispatcher started",
		slog.String("worker_id", d.workerID.String()),
		slog.Duration("tick_interval", d.tickInterval),
	)
	return nil
}

// Stop signals the tick loop to stop and waits for in-flight dispatches
// to finish, or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	close(d.stopCh)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.hooks.EmitShutdown(ctx)
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out with dispatches in flight")
		return ctx.Err()
	}
}

func (d *Dispatcher) tickLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			if err := d.Sweep(context.Background(), d.now()); err != nil {
				d.logger.Error("sweep error", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep runs one dispatch pass at the given instant: every due schedule
// is claimed and, when the claim wins, fired asynchronously. A schedule
// that fails to claim or fire never stops the rest of the sweep. Exported
// so callers driving their own cadence (and tests) can tick explicitly.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) error {
	due, err := d.registry.Due(ctx, now)
	if err != nil {
		return err
	}

	for _, s := range due {
		claimed, err := d.registry.ClaimFiring(ctx, s.ID, now)
		if err != nil {
			d.logger.Error("claim error",
				slog.String("schedule_id", s.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !claimed {
			// Another sweep won, or the schedule changed under us.
			continue
		}

		d.sem <- struct{}{}
		d.wg.Add(1)
		go func(s *schedule.Schedule) {
			defer d.wg.Done()
			defer func() { <-d.sem }()
			d.fire(context.Background(), s, now)
		}(s)
	}
	return nil
}

// fire runs the trigger for a claimed schedule and records the outcome.
func (d *Dispatcher) fire(ctx context.Context, s *schedule.Schedule, at time.Time) {
	req := TriggerRequest{
		ScheduleID:     s.ID,
		WorkflowID:     s.WorkflowID,
		NodeID:         s.NodeID,
		ExecutionCount: s.ExecutionCount,
		FiredAt:        at,
	}

	// time.Now, not d.now: elapsed needs the monotonic clock, and the
	// injected clock only supplies instants.
	started := time.Now()
	fireErr := d.trigger.Fire(ctx, req)
	elapsed := time.Since(started)

	advanced, err := d.registry.Advance(ctx, s.ID, fireErr, at)
	if err != nil {
		d.logger.Error("advance error",
			slog.String("schedule_id", s.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	if fireErr == nil {
		d.logger.Info("schedule fired",
			slog.String("schedule_id", s.ID.String()),
			slog.String("workflow_id", s.WorkflowID),
			slog.Int("execution_count", advanced.ExecutionCount),
			slog.Duration("elapsed", elapsed),
		)
		d.hooks.EmitScheduleFired(ctx, advanced, elapsed)
		if advanced.Status == schedule.StatusCompleted {
			d.hooks.EmitScheduleCompleted(ctx, advanced)
		}
		return
	}

	switch advanced.Status {
	case schedule.StatusPending:
		d.hooks.EmitScheduleRetrying(ctx, advanced, advanced.ConsecutiveFailures, *advanced.NextExecution)
	case schedule.StatusFailed:
		d.hooks.EmitScheduleFailed(ctx, advanced, fireErr)
	}
}
