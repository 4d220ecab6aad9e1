package probe

import (
	"context"
	"time"
)

// Result is the outcome of a single liveness probe. It is a value produced
// fresh by each attempt and never mutated afterwards.
type Result struct {
	Healthy      bool
	ResponseTime time.Duration
	Error        string
}

// Probe performs one health check against an external resource. A probe
// converts every failure it encounters into an unhealthy Result; it must
// not panic.
type Probe interface {
	Check(ctx context.Context) Result
}

// Func adapts a plain function to the Probe interface.
type Func func(ctx context.Context) Result

func (f Func) Check(ctx context.Context) Result {
	return f(ctx)
}
