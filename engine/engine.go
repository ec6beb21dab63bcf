// Package engine wires the DeFlow subsystems together: it builds the
// schedule registry over a store, the lifecycle hook registry, and the
// dispatcher, and exposes the external schedule operations.
//
// This package sits above all subsystem packages and below the
// application layer.
package engine

import (
	"context"
	"log/slog"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/backoff"
	"github.com/Legatia/DeFlow-sub000/dispatcher"
	"github.com/Legatia/DeFlow-sub000/hook"
	"github.com/Legatia/DeFlow-sub000/middleware"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Engine owns a schedule registry and its dispatcher.
type Engine struct {
	store    schedule.Store
	trigger  dispatcher.Trigger
	registry *schedule.Registry
	disp     *dispatcher.Dispatcher
	hooks    *hook.Registry
	logger   *slog.Logger
	cfg      deflow.Config
	bo       backoff.Strategy
	now      func() time.Time

	pendingHooks []hook.Hook
	triggerMW    []middleware.Middleware
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the schedule store. Required.
func WithStore(s schedule.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithTrigger sets the trigger fired for due schedules. Required.
func WithTrigger(t dispatcher.Trigger) Option {
	return func(e *Engine) { e.trigger = t }
}

// WithTriggerFunc sets the trigger from a plain function.
func WithTriggerFunc(f dispatcher.TriggerFunc) Option {
	return func(e *Engine) { e.trigger = f }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithConfig overrides the dispatch configuration.
func WithConfig(cfg deflow.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithBackoff sets the retry backoff strategy. If not set,
// backoff.DefaultStrategy() (exponential with jitter) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) { e.bo = b }
}

// WithTriggerMiddleware wraps the trigger with the given middleware.
// The first middleware listed is the outermost wrapper.
func WithTriggerMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) { e.triggerMW = append(e.triggerMW, mws...) }
}

// WithHook registers a lifecycle hook with the engine.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) { e.pendingHooks = append(e.pendingHooks, h) }
}

// WithClock sets the time source. Tests inject a fake clock here.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an Engine. A store and a trigger are required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		cfg:    deflow.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		return nil, deflow.ErrNoStore
	}
	if e.trigger == nil {
		return nil, deflow.ErrNoTrigger
	}
	if e.bo == nil {
		e.bo = backoff.DefaultStrategy()
	}
	if len(e.triggerMW) > 0 {
		e.trigger = middleware.Wrap(e.trigger, e.triggerMW...)
	}

	e.hooks = hook.NewRegistry(e.logger)
	for _, h := range e.pendingHooks {
		e.hooks.Register(h)
	}

	regOpts := []schedule.RegistryOption{
		schedule.WithLogger(e.logger),
		schedule.WithBackoff(e.bo),
	}
	dispOpts := []dispatcher.Option{
		dispatcher.WithLogger(e.logger),
		dispatcher.WithHooks(e.hooks),
		dispatcher.WithTickInterval(e.cfg.TickInterval),
		dispatcher.WithMaxConcurrentFires(e.cfg.MaxConcurrentFires),
	}
	if e.now != nil {
		regOpts = append(regOpts, schedule.WithClock(e.now))
		dispOpts = append(dispOpts, dispatcher.WithClock(e.now))
	}

	e.registry = schedule.NewRegistry(e.store, regOpts...)
	e.disp = dispatcher.New(e.registry, e.trigger, dispOpts...)
	return e, nil
}

// Registry returns the underlying schedule registry for advanced usage.
func (e *Engine) Registry() *schedule.Registry { return e.registry }

// Hooks returns the engine's lifecycle hook registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Start prepares the store (migrating and pinging when it is a durable
// backend) and launches the dispatch tick loop.
func (e *Engine) Start(ctx context.Context) error {
	if st, ok := e.store.(deflow.Storer); ok {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		if err := st.Ping(ctx); err != nil {
			return err
		}
	}
	return e.disp.Start(ctx)
}

// Stop shuts the dispatcher down, waiting up to the configured shutdown
// timeout for in-flight dispatches when ctx carries no deadline of its
// own, then closes the store when it is a durable backend.
func (e *Engine) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && e.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := e.disp.Stop(ctx); err != nil {
		return err
	}
	if st, ok := e.store.(deflow.Storer); ok {
		return st.Close()
	}
	return nil
}

// Sweep runs one dispatch pass at the given instant. Callers driving
// their own cadence use this instead of Start.
func (e *Engine) Sweep(ctx context.Context, now time.Time) error {
	return e.disp.Sweep(ctx, now)
}
