package waiter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/treefrog-dev/frogup/internal/config"
	"github.com/treefrog-dev/frogup/internal/poller"
	"github.com/treefrog-dev/frogup/internal/probe"
	"github.com/treefrog-dev/frogup/internal/storage"
)

// Store defines the storage operations required by the waiter.
type Store interface {
	InsertOutcome(ctx context.Context, dependency string, r probe.Result, attempts int) error
	LatestOutcome(ctx context.Context, dependency string) (*storage.Outcome, error)
}

// ProbeFactory creates a Probe for a given dependency configuration.
type ProbeFactory func(config.Dependency) (probe.Probe, error)

// Outcome pairs a dependency with the terminal result of waiting on it.
type Outcome struct {
	Dependency config.Dependency
	Result     probe.Result
	Attempts   int
}

// Waiter polls each configured dependency until ready. Every poll owns its
// own deadline and timer; dependencies share nothing while in flight.
type Waiter struct {
	deps      []config.Dependency
	store     Store
	factory   ProbeFactory
	onProbe   func(dependency string, r probe.Result)
	onOutcome func(o Outcome, prev *string)
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// New creates a new Waiter. Pass nil store to skip persistence and nil
// logger to use the default logger.
func New(deps []config.Dependency, store Store, factory ProbeFactory, logger *slog.Logger) *Waiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{
		deps:    deps,
		store:   store,
		factory: factory,
		logger:  logger,
	}
}

// SetOnProbe sets the callback invoked after every individual probe attempt.
func (w *Waiter) SetOnProbe(fn func(dependency string, r probe.Result)) {
	w.onProbe = fn
}

// SetOnOutcome sets the callback invoked with each terminal outcome.
// prev is the previously stored status (nil when there is none).
func (w *Waiter) SetOnOutcome(fn func(o Outcome, prev *string)) {
	w.onOutcome = fn
}

// WaitAll polls every dependency concurrently until each is ready or its
// own wait_timeout elapses. It returns one outcome per dependency, in
// configuration order, and never an error: unready dependencies are
// reported in their outcome.
func (w *Waiter) WaitAll(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(w.deps))

	var wg sync.WaitGroup
	for i, dep := range w.deps {
		wg.Add(1)
		go func(i int, dep config.Dependency) {
			defer wg.Done()
			outcomes[i] = w.waitOne(ctx, dep)
		}(i, dep)
	}
	wg.Wait()

	return outcomes
}

func (w *Waiter) waitOne(ctx context.Context, dep config.Dependency) Outcome {
	p, err := w.factory(dep)
	if err != nil {
		o := Outcome{
			Dependency: dep,
			Result:     probe.Result{Error: "creating probe: " + err.Error()},
		}
		w.record(ctx, o)
		return o
	}

	var attempts atomic.Int64
	counted := probe.Func(func(ctx context.Context) probe.Result {
		attempts.Add(1)
		r := p.Check(ctx)
		w.logger.Debug("probe attempt",
			"dependency", dep.Name,
			"attempt", attempts.Load(),
			"healthy", r.Healthy,
			"response_time", r.ResponseTime,
			"error", r.Error,
		)
		if w.onProbe != nil {
			w.onProbe(dep.Name, r)
		}
		return r
	})

	result := poller.Wait(ctx, counted, poller.Config{
		Timeout:  dep.WaitTimeout.Duration,
		Interval: dep.Interval.Duration,
	})

	o := Outcome{Dependency: dep, Result: result, Attempts: int(attempts.Load())}

	level := slog.LevelInfo
	if !result.Healthy {
		level = slog.LevelWarn
	}
	w.logger.Log(ctx, level, "wait finished",
		"dependency", dep.Name,
		"healthy", result.Healthy,
		"attempts", o.Attempts,
		"elapsed", result.ResponseTime,
		"error", result.Error,
	)

	w.record(ctx, o)
	return o
}

func (w *Waiter) record(ctx context.Context, o Outcome) {
	var prev *string
	if w.store != nil {
		if stored, err := w.store.LatestOutcome(ctx, o.Dependency.Name); err != nil {
			w.logger.Warn("fetching previous outcome", "dependency", o.Dependency.Name, "error", err)
		} else if stored != nil {
			prev = &stored.Status
		}
		if err := w.store.InsertOutcome(ctx, o.Dependency.Name, o.Result, o.Attempts); err != nil {
			w.logger.Error("storing outcome", "dependency", o.Dependency.Name, "error", err)
		}
	}
	if w.onOutcome != nil {
		w.onOutcome(o, prev)
	}
}

// AllReady reports whether every outcome is healthy.
func AllReady(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Result.Healthy {
			return false
		}
	}
	return true
}

// Watch re-probes every dependency at its configured interval until ctx is
// cancelled, recording each result. It is non-blocking; use Wait to block
// until all watch goroutines have exited.
func (w *Waiter) Watch(ctx context.Context) {
	for _, dep := range w.deps {
		p, err := w.factory(dep)
		if err != nil {
			w.logger.Error("creating probe", "dependency", dep.Name, "error", err)
			continue
		}
		w.wg.Add(1)
		go w.watchOne(ctx, dep, p)
	}
}

// Wait blocks until all watch goroutines have exited.
func (w *Waiter) Wait() {
	w.wg.Wait()
}

func (w *Waiter) watchOne(ctx context.Context, dep config.Dependency, p probe.Probe) {
	defer w.wg.Done()

	// Probe immediately, then on every tick.
	w.probeOnce(ctx, dep, p)

	ticker := time.NewTicker(dep.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.probeOnce(ctx, dep, p)
		}
	}
}

func (w *Waiter) probeOnce(ctx context.Context, dep config.Dependency, p probe.Probe) {
	r := p.Check(ctx)

	w.logger.Info("probe result",
		"dependency", dep.Name,
		"healthy", r.Healthy,
		"response_time", r.ResponseTime,
		"error", r.Error,
	)

	if w.onProbe != nil {
		w.onProbe(dep.Name, r)
	}
	w.record(ctx, Outcome{Dependency: dep, Result: r, Attempts: 1})
}
