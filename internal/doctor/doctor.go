package doctor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/fatih/color"

	"github.com/treefrog-dev/frogup/internal/config"
)

// CommandExecutor abstracts os/exec for testability.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, err error)
}

type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ToolReport is the doctor's verdict on one developer tool.
type ToolReport struct {
	Name     string
	Found    bool
	Version  string
	Error    string
	Optional bool
}

// Doctor verifies that the developer tools the stack needs are installed.
type Doctor struct {
	tools    []config.Tool
	executor CommandExecutor
	lookPath func(string) (string, error)
}

// New creates a Doctor for the given configuration. An empty tool list falls
// back to the built-in toolchain set.
func New(cfg config.DoctorConfig) *Doctor {
	return NewWithExecutor(cfg, osExecutor{})
}

// NewWithExecutor creates a Doctor with a custom executor (for testing).
func NewWithExecutor(cfg config.DoctorConfig, exec CommandExecutor) *Doctor {
	tools := cfg.Tools
	if len(tools) == 0 {
		tools = defaultTools()
	}
	return &Doctor{tools: tools, executor: exec, lookPath: lookPath}
}

func defaultTools() []config.Tool {
	return []config.Tool{
		{Name: "docker", Command: []string{"docker", "--version"}},
		{Name: "docker compose", Command: []string{"docker", "compose", "version"}},
		{Name: "node", Command: []string{"node", "--version"}},
		{Name: "npm", Command: []string{"npm", "--version"}},
		{Name: "git", Command: []string{"git", "--version"}, Optional: true},
	}
}

func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run checks every tool and returns one report per tool.
func (d *Doctor) Run(ctx context.Context) []ToolReport {
	reports := make([]ToolReport, 0, len(d.tools))
	for _, tool := range d.tools {
		reports = append(reports, d.checkTool(ctx, tool))
	}
	return reports
}

func (d *Doctor) checkTool(ctx context.Context, tool config.Tool) ToolReport {
	report := ToolReport{Name: tool.Name, Optional: tool.Optional}

	if len(tool.Command) == 0 {
		report.Error = "no command configured"
		return report
	}

	if _, err := d.lookPath(tool.Command[0]); err != nil {
		report.Error = fmt.Sprintf("%s not found in PATH", tool.Command[0])
		return report
	}

	out, err := d.executor.Run(ctx, tool.Command[0], tool.Command[1:]...)
	if err != nil {
		report.Error = fmt.Sprintf("running %s: %v", strings.Join(tool.Command, " "), err)
		return report
	}

	report.Found = true
	report.Version = firstLine(string(out))
	return report
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// MissingRequired reports whether any non-optional tool was not found.
func MissingRequired(reports []ToolReport) bool {
	for _, r := range reports {
		if !r.Found && !r.Optional {
			return true
		}
	}
	return false
}

// Print writes a colored report to out.
func Print(out io.Writer, reports []ToolReport) {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	for _, r := range reports {
		switch {
		case r.Found:
			fmt.Fprintf(out, "%s %s: %s\n", ok("✓"), r.Name, r.Version)
		case r.Optional:
			fmt.Fprintf(out, "%s %s: %s (optional)\n", warn("-"), r.Name, r.Error)
		default:
			fmt.Fprintf(out, "%s %s: %s\n", fail("✗"), r.Name, r.Error)
		}
	}
}
