package waiter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/treefrog-dev/frogup/internal/config"
	"github.com/treefrog-dev/frogup/internal/poller"
	"github.com/treefrog-dev/frogup/internal/probe"
	"github.com/treefrog-dev/frogup/internal/storage"
	"github.com/treefrog-dev/frogup/internal/waiter"
)

// mockStore records inserted outcomes.
type mockStore struct {
	mu       sync.Mutex
	inserted []probe.Result
	latest   map[string]*storage.Outcome
}

func (m *mockStore) InsertOutcome(_ context.Context, dependency string, r probe.Result, attempts int) error {
	m.mu.Lock()
	m.inserted = append(m.inserted, r)
	m.mu.Unlock()
	return nil
}

func (m *mockStore) LatestOutcome(_ context.Context, dependency string) (*storage.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest != nil {
		return m.latest[dependency], nil
	}
	return nil, nil
}

func (m *mockStore) insertedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserted)
}

// flakyProbe fails a fixed number of times before succeeding.
type flakyProbe struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (p *flakyProbe) Check(ctx context.Context) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return probe.Result{Error: "not yet"}
	}
	return probe.Result{Healthy: true, ResponseTime: time.Millisecond}
}

func makeDeps(names ...string) []config.Dependency {
	deps := make([]config.Dependency, 0, len(names))
	for _, name := range names {
		deps = append(deps, config.Dependency{
			Name:        name,
			Type:        "http",
			Target:      "http://example.com",
			Timeout:     config.Duration{Duration: time.Second},
			Interval:    config.Duration{Duration: 10 * time.Millisecond},
			WaitTimeout: config.Duration{Duration: time.Second},
		})
	}
	return deps
}

func makeFactory(p probe.Probe) waiter.ProbeFactory {
	return func(dep config.Dependency) (probe.Probe, error) {
		return p, nil
	}
}

func TestWaitAll_ImmediatelyReady(t *testing.T) {
	store := &mockStore{}
	p := probe.Func(func(ctx context.Context) probe.Result {
		return probe.Result{Healthy: true, ResponseTime: time.Millisecond}
	})

	w := waiter.New(makeDeps("api"), store, makeFactory(p), nil)
	outcomes := w.WaitAll(context.Background())

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if !outcomes[0].Result.Healthy {
		t.Errorf("expected ready, got error %q", outcomes[0].Result.Error)
	}
	if outcomes[0].Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", outcomes[0].Attempts)
	}
	if store.insertedCount() != 1 {
		t.Errorf("expected 1 stored outcome, got %d", store.insertedCount())
	}
	if !waiter.AllReady(outcomes) {
		t.Error("expected AllReady to be true")
	}
}

func TestWaitAll_RetriesUntilReady(t *testing.T) {
	store := &mockStore{}
	p := &flakyProbe{failures: 2}

	w := waiter.New(makeDeps("api"), store, makeFactory(p), nil)
	outcomes := w.WaitAll(context.Background())

	if !outcomes[0].Result.Healthy {
		t.Fatalf("expected ready after retries, got error %q", outcomes[0].Result.Error)
	}
	if outcomes[0].Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", outcomes[0].Attempts)
	}
}

func TestWaitAll_TimeoutReportedInOutcome(t *testing.T) {
	store := &mockStore{}
	p := probe.Func(func(ctx context.Context) probe.Result {
		return probe.Result{Error: "connection refused"}
	})

	deps := makeDeps("api")
	deps[0].WaitTimeout = config.Duration{Duration: 30 * time.Millisecond}

	w := waiter.New(deps, store, makeFactory(p), nil)
	outcomes := w.WaitAll(context.Background())

	if outcomes[0].Result.Healthy {
		t.Fatal("expected unready outcome")
	}
	if outcomes[0].Result.Error != poller.TimeoutMessage {
		t.Errorf("expected timeout error, got %q", outcomes[0].Result.Error)
	}
	if waiter.AllReady(outcomes) {
		t.Error("expected AllReady to be false")
	}
}

func TestWaitAll_ConcurrentDependencies(t *testing.T) {
	store := &mockStore{}
	p := probe.Func(func(ctx context.Context) probe.Result {
		time.Sleep(50 * time.Millisecond)
		return probe.Result{Healthy: true}
	})

	w := waiter.New(makeDeps("a", "b", "c"), store, makeFactory(p), nil)

	start := time.Now()
	outcomes := w.WaitAll(context.Background())
	elapsed := time.Since(start)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	// Three 50ms probes in parallel should take nowhere near 150ms.
	if elapsed > 140*time.Millisecond {
		t.Errorf("dependencies appear to be polled sequentially: %v", elapsed)
	}
}

func TestWaitAll_FactoryError(t *testing.T) {
	store := &mockStore{}
	factory := func(dep config.Dependency) (probe.Probe, error) {
		return nil, errors.New("unknown probe type")
	}

	w := waiter.New(makeDeps("api"), store, factory, nil)
	outcomes := w.WaitAll(context.Background())

	if outcomes[0].Result.Healthy {
		t.Error("expected unready outcome for factory error")
	}
	if outcomes[0].Result.Error == "" {
		t.Error("expected error message for factory error")
	}
}

func TestWaitAll_OnOutcomeCallback(t *testing.T) {
	store := &mockStore{
		latest: map[string]*storage.Outcome{
			"api": {Dependency: "api", Status: storage.StatusUnready},
		},
	}
	p := probe.Func(func(ctx context.Context) probe.Result {
		return probe.Result{Healthy: true}
	})

	var mu sync.Mutex
	var gotPrev *string
	calls := 0

	w := waiter.New(makeDeps("api"), store, makeFactory(p), nil)
	w.SetOnOutcome(func(o waiter.Outcome, prev *string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		gotPrev = prev
	})
	w.WaitAll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 outcome callback, got %d", calls)
	}
	if gotPrev == nil || *gotPrev != storage.StatusUnready {
		t.Errorf("expected previous status 'unready', got %v", gotPrev)
	}
}

func TestWaitAll_OnProbeCallbackPerAttempt(t *testing.T) {
	store := &mockStore{}
	p := &flakyProbe{failures: 2}

	var mu sync.Mutex
	probes := 0

	w := waiter.New(makeDeps("api"), store, makeFactory(p), nil)
	w.SetOnProbe(func(dependency string, r probe.Result) {
		mu.Lock()
		probes++
		mu.Unlock()
	})
	w.WaitAll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if probes != 3 {
		t.Errorf("expected 3 probe callbacks, got %d", probes)
	}
}

func TestWatch_ProbesImmediatelyAndPeriodically(t *testing.T) {
	store := &mockStore{}
	p := probe.Func(func(ctx context.Context) probe.Result {
		return probe.Result{Healthy: true}
	})

	deps := makeDeps("api")
	deps[0].Interval = config.Duration{Duration: 30 * time.Millisecond}

	w := waiter.New(deps, store, makeFactory(p), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	w.Watch(ctx)
	<-ctx.Done()
	w.Wait()

	n := store.insertedCount()
	if n < 2 {
		t.Errorf("expected at least 2 stored outcomes (immediate + ticks), got %d", n)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	store := &mockStore{}
	p := probe.Func(func(ctx context.Context) probe.Result {
		return probe.Result{Healthy: true}
	})

	w := waiter.New(makeDeps("api"), store, makeFactory(p), nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Watch(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch goroutines did not stop after cancel")
	}
}
