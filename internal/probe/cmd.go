package probe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/treefrog-dev/frogup/internal/config"
)

// CommandExecutor abstracts os/exec for testability.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// cmdProbe shells out to a status command and matches its stdout against an
// expected token (case-sensitive substring, e.g. "PONG" from redis-cli ping).
type cmdProbe struct {
	dep      config.Dependency
	executor CommandExecutor
}

func newCmdProbe(dep config.Dependency) *cmdProbe {
	return &cmdProbe{dep: dep, executor: &osExecutor{}}
}

// NewCmdProbeWithExecutor creates a cmd probe with a custom executor (for testing).
func NewCmdProbeWithExecutor(dep config.Dependency, exec CommandExecutor) Probe {
	return &cmdProbe{dep: dep, executor: exec}
}

func (p *cmdProbe) Check(ctx context.Context) Result {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, p.dep.Timeout.Duration)
	defer cancel()

	stdout, _, err := p.executor.Run(runCtx, p.dep.Command[0], p.dep.Command[1:]...)
	elapsed := time.Since(start)

	if err != nil {
		return Result{
			ResponseTime: elapsed,
			Error:        fmt.Sprintf("running %s: %v", p.dep.Command[0], err),
		}
	}

	if !bytes.Contains(stdout, []byte(p.dep.Expect)) {
		return Result{
			ResponseTime: elapsed,
			Error:        fmt.Sprintf("output does not contain %q", p.dep.Expect),
		}
	}

	return Result{Healthy: true, ResponseTime: elapsed}
}
