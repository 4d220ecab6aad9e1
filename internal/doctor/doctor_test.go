package doctor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/treefrog-dev/frogup/internal/config"
)

type mockExecutor struct {
	stdout []byte
	err    error
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.stdout, m.err
}

func makeDoctor(exec CommandExecutor, tools ...config.Tool) *Doctor {
	d := NewWithExecutor(config.DoctorConfig{Tools: tools}, exec)
	d.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	return d
}

func TestRun_ToolFound(t *testing.T) {
	d := makeDoctor(&mockExecutor{stdout: []byte("Docker version 27.3.1, build ce12230\n")},
		config.Tool{Name: "docker", Command: []string{"docker", "--version"}},
	)

	reports := d.Run(context.Background())
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if !reports[0].Found {
		t.Errorf("expected tool to be found: %s", reports[0].Error)
	}
	if reports[0].Version != "Docker version 27.3.1, build ce12230" {
		t.Errorf("expected version from first output line, got %q", reports[0].Version)
	}
}

func TestRun_ToolMissingFromPath(t *testing.T) {
	d := makeDoctor(&mockExecutor{},
		config.Tool{Name: "node", Command: []string{"node", "--version"}},
	)
	d.lookPath = func(name string) (string, error) { return "", errors.New("not found") }

	reports := d.Run(context.Background())
	if reports[0].Found {
		t.Error("expected tool to be reported missing")
	}
	if !strings.Contains(reports[0].Error, "not found in PATH") {
		t.Errorf("unexpected error %q", reports[0].Error)
	}
}

func TestRun_VersionCommandFails(t *testing.T) {
	d := makeDoctor(&mockExecutor{err: errors.New("exit status 127")},
		config.Tool{Name: "npm", Command: []string{"npm", "--version"}},
	)

	reports := d.Run(context.Background())
	if reports[0].Found {
		t.Error("expected tool to be reported missing when version command fails")
	}
}

func TestRun_EmptyConfigUsesDefaults(t *testing.T) {
	d := NewWithExecutor(config.DoctorConfig{}, &mockExecutor{stdout: []byte("v1\n")})
	d.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	reports := d.Run(context.Background())
	if len(reports) < 4 {
		t.Errorf("expected the built-in toolchain set, got %d reports", len(reports))
	}
}

func TestMissingRequired(t *testing.T) {
	reports := []ToolReport{
		{Name: "docker", Found: true},
		{Name: "git", Found: false, Optional: true},
	}
	if MissingRequired(reports) {
		t.Error("optional missing tool should not count as required")
	}

	reports = append(reports, ToolReport{Name: "node", Found: false})
	if !MissingRequired(reports) {
		t.Error("expected missing required tool to be reported")
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	Print(&out, []ToolReport{
		{Name: "docker", Found: true, Version: "Docker version 27.3.1"},
		{Name: "node", Found: false, Error: "node not found in PATH"},
		{Name: "git", Found: false, Optional: true, Error: "git not found in PATH"},
	})

	s := out.String()
	for _, want := range []string{"docker", "Docker version 27.3.1", "node not found in PATH", "(optional)"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, s)
		}
	}
}
