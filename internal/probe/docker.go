package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/treefrog-dev/frogup/internal/config"
)

const dockerSockPath = "/var/run/docker.sock"

// ContainerState holds the minimal Docker container state we care about.
type ContainerState struct {
	Running bool
}

// DockerClient abstracts Docker Engine API access for testability.
type DockerClient interface {
	InspectContainer(ctx context.Context, name string) (*ContainerState, error)
}

type dockerProbe struct {
	dep    config.Dependency
	client DockerClient
}

func newDockerProbe(dep config.Dependency) *dockerProbe {
	return &dockerProbe{dep: dep, client: newUnixDockerClient(dep.Timeout.Duration)}
}

// NewDockerProbeWithClient creates a docker probe with a custom client (for testing).
func NewDockerProbeWithClient(dep config.Dependency, client DockerClient) Probe {
	return &dockerProbe{dep: dep, client: client}
}

func (p *dockerProbe) Check(ctx context.Context) Result {
	start := time.Now()

	state, err := p.client.InspectContainer(ctx, p.dep.Target)
	elapsed := time.Since(start)

	if err != nil {
		return Result{ResponseTime: elapsed, Error: err.Error()}
	}

	if !state.Running {
		return Result{
			ResponseTime: elapsed,
			Error:        fmt.Sprintf("container %q is not running", p.dep.Target),
		}
	}

	return Result{Healthy: true, ResponseTime: elapsed}
}

// unixDockerClient queries the Docker Engine API over the Unix socket.
type unixDockerClient struct {
	client *http.Client
}

func newUnixDockerClient(timeout time.Duration) *unixDockerClient {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return net.DialTimeout("unix", dockerSockPath, timeout)
		},
	}
	return &unixDockerClient{
		client: &http.Client{Transport: transport, Timeout: timeout},
	}
}

func (d *unixDockerClient) InspectContainer(ctx context.Context, name string) (*ContainerState, error) {
	url := fmt.Sprintf("http://localhost/containers/%s/json", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying docker socket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("container %q not found", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docker API returned status %d", resp.StatusCode)
	}

	var body struct {
		State ContainerState `json:"State"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding docker response: %w", err)
	}
	return &body.State, nil
}
