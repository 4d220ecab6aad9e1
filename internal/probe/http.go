package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/treefrog-dev/frogup/internal/config"
)

type httpProbe struct {
	dep    config.Dependency
	client *http.Client
}

func newHTTPProbe(dep config.Dependency) *httpProbe {
	return &httpProbe{
		dep:    dep,
		client: &http.Client{Timeout: dep.Timeout.Duration},
	}
}

func (p *httpProbe) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.dep.Target, nil)
	if err != nil {
		return Result{
			ResponseTime: time.Since(start),
			Error:        fmt.Sprintf("creating request: %v", err),
		}
	}
	for k, v := range p.dep.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{ResponseTime: elapsed, Error: err.Error()}
	}
	resp.Body.Close()

	// Ready means exactly 200; a 503 from a warming-up service is not ready.
	if resp.StatusCode != http.StatusOK {
		return Result{
			ResponseTime: elapsed,
			Error:        fmt.Sprintf("expected status 200, got %d", resp.StatusCode),
		}
	}

	return Result{Healthy: true, ResponseTime: elapsed}
}
