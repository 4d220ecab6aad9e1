package probe

import (
	"fmt"

	"github.com/treefrog-dev/frogup/internal/config"
)

// New returns the appropriate Probe for the given dependency configuration.
func New(dep config.Dependency) (Probe, error) {
	switch dep.Type {
	case "http":
		return newHTTPProbe(dep), nil
	case "port":
		return newPortProbe(dep), nil
	case "cmd":
		return newCmdProbe(dep), nil
	case "docker":
		return newDockerProbe(dep), nil
	default:
		return nil, fmt.Errorf("unknown probe type %q", dep.Type)
	}
}
