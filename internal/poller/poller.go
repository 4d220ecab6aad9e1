// Package poller retries a probe until it reports healthy or a deadline
// passes. It is the primitive behind "wait for the stack to come up": every
// frogup command that blocks on a dependency funnels through Wait.
package poller

import (
	"context"
	"time"

	"github.com/treefrog-dev/frogup/internal/probe"
)

const (
	// DefaultTimeout is the overall budget applied by DefaultConfig.
	DefaultTimeout = 60 * time.Second
	// DefaultInterval is the pause between attempts applied when
	// Config.Interval is unset.
	DefaultInterval = 2 * time.Second
)

// TimeoutMessage is the error carried by the synthesized result when the
// budget runs out before any attempt succeeds.
const TimeoutMessage = "timeout waiting for health"

// Config bounds a single Wait call. Timeout is taken literally: a zero or
// negative budget still runs exactly one attempt and then reports timeout.
// A non-positive Interval falls back to DefaultInterval.
type Config struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultConfig returns the standard 60s budget with 2s between attempts.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

// Wait invokes p until it reports healthy or cfg.Timeout elapses. It returns
// the first healthy result as-is, or a synthesized unhealthy result whose
// ResponseTime is the total elapsed wall-clock time. Wait never returns an
// error: probes own the conversion of their failures into unhealthy results,
// and timeout is reported in-band so callers inspect Result.Healthy.
//
// The deadline is checked only between attempts; an attempt that starts
// before the deadline is allowed to finish after it. Cancelling ctx ends the
// wait during the sleep between attempts with an unhealthy result carrying
// the context error.
func Wait(ctx context.Context, p probe.Probe, cfg Config) probe.Result {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(cfg.Timeout)

	for {
		res := p.Check(ctx)
		if res.Healthy {
			return res
		}
		if !time.Now().Before(deadline) {
			return probe.Result{ResponseTime: time.Since(start), Error: TimeoutMessage}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return probe.Result{ResponseTime: time.Since(start), Error: ctx.Err().Error()}
		case <-timer.C:
		}
	}
}
