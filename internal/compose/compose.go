package compose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/treefrog-dev/frogup/internal/config"
)

// Runner abstracts command execution with streamed output for testability.
type Runner interface {
	Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error
}

// osRunner is the real Runner that uses os/exec.
type osRunner struct{}

func (osRunner) Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Stack drives docker compose for the development stack.
type Stack struct {
	cfg    config.ComposeConfig
	runner Runner
	logger *slog.Logger
}

// New creates a Stack. Pass nil logger to use the default logger.
func New(cfg config.ComposeConfig, logger *slog.Logger) *Stack {
	return NewWithRunner(cfg, osRunner{}, logger)
}

// NewWithRunner creates a Stack with a custom runner (for testing).
func NewWithRunner(cfg config.ComposeConfig, runner Runner, logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{cfg: cfg, runner: runner, logger: logger}
}

func (s *Stack) baseArgs() []string {
	args := []string{"compose", "-f", s.cfg.File}
	if s.cfg.Project != "" {
		args = append(args, "-p", s.cfg.Project)
	}
	return args
}

// Up starts the stack detached. Compose output is streamed to out.
func (s *Stack) Up(ctx context.Context, out io.Writer) error {
	args := append(s.baseArgs(), "up", "-d")
	s.logger.Info("starting stack", "file", s.cfg.File, "project", s.cfg.Project)
	if err := s.runner.Run(ctx, out, out, "docker", args...); err != nil {
		return fmt.Errorf("docker compose up: %w", err)
	}
	return nil
}

// Down stops and removes the stack.
func (s *Stack) Down(ctx context.Context, out io.Writer) error {
	args := append(s.baseArgs(), "down")
	s.logger.Info("stopping stack", "file", s.cfg.File, "project", s.cfg.Project)
	if err := s.runner.Run(ctx, out, out, "docker", args...); err != nil {
		return fmt.Errorf("docker compose down: %w", err)
	}
	return nil
}

// Logs streams compose logs for the given services (all when empty) to out.
// tail limits output to the last N lines per service; 0 means no limit.
func (s *Stack) Logs(ctx context.Context, out io.Writer, services []string, follow bool, tail int) error {
	args := append(s.baseArgs(), "logs")
	if follow {
		args = append(args, "--follow")
	}
	if tail > 0 {
		args = append(args, "--tail", strconv.Itoa(tail))
	}
	args = append(args, services...)
	if err := s.runner.Run(ctx, out, out, "docker", args...); err != nil {
		return fmt.Errorf("docker compose logs: %w", err)
	}
	return nil
}
