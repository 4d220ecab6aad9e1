package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/treefrog-dev/frogup/internal/config"
)

// portProbe reports healthy once something is listening on the target
// host:port.
type portProbe struct {
	dep config.Dependency
}

func newPortProbe(dep config.Dependency) *portProbe {
	return &portProbe{dep: dep}
}

func (p *portProbe) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{Timeout: p.dep.Timeout.Duration}
	conn, err := dialer.DialContext(ctx, "tcp", p.dep.Target)
	elapsed := time.Since(start)
	if err != nil {
		return Result{
			ResponseTime: elapsed,
			Error:        fmt.Sprintf("dial tcp %s: %v", p.dep.Target, err),
		}
	}
	conn.Close()
	return Result{Healthy: true, ResponseTime: elapsed}
}
