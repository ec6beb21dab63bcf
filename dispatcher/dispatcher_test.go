package dispatcher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Legatia/DeFlow-sub000/backoff"
	"github.com/Legatia/DeFlow-sub000/dispatcher"
	"github.com/Legatia/DeFlow-sub000/hook"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
	"github.com/Legatia/DeFlow-sub000/store/memory"
)

// triggerSpy records Fire calls with thread safety. err, when set, is
// returned from every call.
type triggerSpy struct {
	mu    sync.Mutex
	calls []dispatcher.TriggerRequest
	err   error
}

func (s *triggerSpy) Fire(_ context.Context, req dispatcher.TriggerRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.err
}

func (s *triggerSpy) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *triggerSpy) Calls() []dispatcher.TriggerRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dispatcher.TriggerRequest, len(s.calls))
	copy(out, s.calls)
	return out
}

// failFor returns err only for the named workflow.
type selectiveTrigger struct {
	spy      triggerSpy
	failFor  string
	failWith error
}

func (s *selectiveTrigger) Fire(ctx context.Context, req dispatcher.TriggerRequest) error {
	_ = s.spy.Fire(ctx, req)
	if req.WorkflowID == s.failFor {
		return s.failWith
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting: " + msg)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

var baseNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, trigger dispatcher.Trigger, regOpts ...schedule.RegistryOption) (*schedule.Registry, *dispatcher.Dispatcher) {
	t.Helper()

	opts := append([]schedule.RegistryOption{
		schedule.WithClock(func() time.Time { return baseNow }),
		schedule.WithLogger(testLogger()),
	}, regOpts...)
	registry := schedule.NewRegistry(memory.New(), opts...)

	d := dispatcher.New(registry, trigger,
		dispatcher.WithLogger(testLogger()),
		dispatcher.WithClock(func() time.Time { return baseNow }),
	)
	return registry, d
}

func createOneTime(t *testing.T, r *schedule.Registry, workflowID string) *schedule.Schedule {
	t.Helper()

	s, err := r.Create(context.Background(), schedule.Input{
		Mode:     schedule.ModeOneTime,
		DateTime: "01/06/24 10:00:00",
	}, workflowID, "node1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func statusOf(t *testing.T, r *schedule.Registry, scheduleID id.ScheduleID) schedule.Status {
	t.Helper()

	s, err := r.Get(context.Background(), scheduleID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return s.Status
}

func TestSweep_FiresOnce(t *testing.T) {
	ctx := context.Background()
	spy := &triggerSpy{}
	registry, d := newHarness(t, spy)

	s := createOneTime(t, registry, "wf1")

	if err := d.Sweep(ctx, baseNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	waitFor(t, func() bool { return spy.Count() == 1 }, "trigger fire")
	waitFor(t, func() bool {
		return statusOf(t, registry, s.ID) == schedule.StatusCompleted
	}, "schedule completed")

	// Further sweeps find nothing due.
	if err := d.Sweep(ctx, baseNow.Add(time.Hour)); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if spy.Count() != 1 {
		t.Errorf("fire count = %d, want 1", spy.Count())
	}

	req := spy.Calls()[0]
	if req.ScheduleID.String() != s.ID.String() || req.WorkflowID != "wf1" || req.NodeID != "node1" {
		t.Errorf("request = %+v", req)
	}
	if req.ExecutionCount != 0 {
		t.Errorf("ExecutionCount = %d, want 0", req.ExecutionCount)
	}
}

func TestSweep_MaxExecutions(t *testing.T) {
	ctx := context.Background()
	spy := &triggerSpy{}
	registry, d := newHarness(t, spy)

	s, err := registry.Create(ctx, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/06/24 10:00:00",
		IntervalSeconds: 300,
		MaxExecutions:   2,
	}, "wf1", "node1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Both instants are already in the past; two sweeps drain the cap.
	for i := 1; i <= 2; i++ {
		if err := d.Sweep(ctx, baseNow); err != nil {
			t.Fatalf("Sweep %d: %v", i, err)
		}
		want := i
		waitFor(t, func() bool { return spy.Count() == want }, "fire")
	}

	waitFor(t, func() bool {
		return statusOf(t, registry, s.ID) == schedule.StatusCompleted
	}, "schedule completed at cap")

	if err := d.Sweep(ctx, baseNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if spy.Count() != 2 {
		t.Errorf("fire count = %d, want 2", spy.Count())
	}
}

func TestSweep_RetryThenFail(t *testing.T) {
	ctx := context.Background()
	spy := &triggerSpy{err: errors.New("downstream unavailable")}
	registry, d := newHarness(t, spy,
		schedule.WithBackoff(backoff.NewConstant(time.Minute)),
	)

	s, err := registry.Create(ctx, schedule.Input{
		Mode:           schedule.ModeOneTime,
		DateTime:       "01/06/24 10:00:00",
		RetryOnFailure: true,
		RetryAttempts:  1,
	}, "wf1", "node1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := d.Sweep(ctx, baseNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	waitFor(t, func() bool { return spy.Count() == 1 }, "first fire")
	waitFor(t, func() bool {
		return statusOf(t, registry, s.ID) == schedule.StatusPending
	}, "schedule pending retry")

	got, _ := registry.Get(ctx, s.ID)
	// A retry consumes no execution.
	if got.ExecutionCount != 0 || got.ConsecutiveFailures != 1 {
		t.Errorf("count = %d, failures = %d", got.ExecutionCount, got.ConsecutiveFailures)
	}
	retryAt := baseNow.Add(time.Minute)
	if got.NextExecution == nil || !got.NextExecution.Equal(retryAt) {
		t.Errorf("NextExecution = %v, want %v", got.NextExecution, retryAt)
	}

	// Before the retry instant, nothing is due.
	if err := d.Sweep(ctx, baseNow.Add(30*time.Second)); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if spy.Count() != 1 {
		t.Fatalf("fired before retry instant: count = %d", spy.Count())
	}

	// The retry also fails; attempts are spent.
	if err := d.Sweep(ctx, retryAt); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	waitFor(t, func() bool { return spy.Count() == 2 }, "retry fire")
	waitFor(t, func() bool {
		return statusOf(t, registry, s.ID) == schedule.StatusFailed
	}, "schedule failed")
}

// A failing schedule never blocks the rest of the sweep.
func TestSweep_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	trigger := &selectiveTrigger{failFor: "bad-wf", failWith: errors.New("boom")}
	registry, d := newHarness(t, trigger)

	bad := createOneTime(t, registry, "bad-wf")
	good := createOneTime(t, registry, "good-wf")

	if err := d.Sweep(ctx, baseNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	waitFor(t, func() bool { return trigger.spy.Count() == 2 }, "both fires")
	waitFor(t, func() bool {
		return statusOf(t, registry, good.ID) == schedule.StatusCompleted
	}, "good schedule completed")
	waitFor(t, func() bool {
		return statusOf(t, registry, bad.ID) == schedule.StatusFailed
	}, "bad schedule failed")
}

func TestSweep_CancelledNotFired(t *testing.T) {
	ctx := context.Background()
	spy := &triggerSpy{}
	registry, d := newHarness(t, spy)

	s := createOneTime(t, registry, "wf1")
	if err := registry.Cancel(ctx, s.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if err := d.Sweep(ctx, baseNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if spy.Count() != 0 {
		t.Errorf("cancelled schedule fired %d times", spy.Count())
	}
}

func TestSweep_EmitsHooks(t *testing.T) {
	ctx := context.Background()
	spy := &triggerSpy{}

	registry := schedule.NewRegistry(memory.New(),
		schedule.WithClock(func() time.Time { return baseNow }),
		schedule.WithLogger(testLogger()),
	)

	events := &eventHook{}
	hooks := hook.NewRegistry(testLogger())
	hooks.Register(events)

	d := dispatcher.New(registry, spy,
		dispatcher.WithLogger(testLogger()),
		dispatcher.WithClock(func() time.Time { return baseNow }),
		dispatcher.WithHooks(hooks),
	)

	createOneTime(t, registry, "wf1")
	if err := d.Sweep(ctx, baseNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	waitFor(t, func() bool {
		return events.count("fired") == 1 && events.count("completed") == 1
	}, "hook events")
}

// eventHook counts lifecycle events.
type eventHook struct {
	mu     sync.Mutex
	events map[string]int
}

func (h *eventHook) Name() string { return "event-counter" }

func (h *eventHook) record(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events == nil {
		h.events = make(map[string]int)
	}
	h.events[name]++
}

func (h *eventHook) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[name]
}

func (h *eventHook) OnScheduleFired(_ context.Context, _ *schedule.Schedule, _ time.Duration) error {
	h.record("fired")
	return nil
}

func (h *eventHook) OnScheduleCompleted(_ context.Context, _ *schedule.Schedule) error {
	h.record("completed")
	return nil
}

func TestStartStop_TickLoopFires(t *testing.T) {
	spy := &triggerSpy{}

	// Real clock: the loop must pick up a due schedule on its own.
	registry := schedule.NewRegistry(memory.New(), schedule.WithLogger(testLogger()))
	d := dispatcher.New(registry, spy,
		dispatcher.WithLogger(testLogger()),
		dispatcher.WithTickInterval(10*time.Millisecond),
	)

	past := time.Now().UTC().Add(-time.Second)
	_, err := registry.Create(context.Background(), schedule.Input{
		Mode:     schedule.ModeOneTime,
		DateTime: past.Format("02/01/06 15:04:05"),
	}, "wf1", "node1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return spy.Count() >= 1 }, "tick loop fire")
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
