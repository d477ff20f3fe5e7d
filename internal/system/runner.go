package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command describes one external invocation. Env carries overlay variables
// appended on top of the parent environment; the parent environment itself
// is never mutated.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string
	Stdin io.Reader
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes host commands. Provisioning code depends on this interface
// only, so tests substitute a scripted fake instead of touching the host.
type Runner interface {
	// Run executes the command, streaming output to the runner's writers.
	Run(ctx context.Context, cmd Command) error
	// Output executes the command and returns its combined output.
	Output(ctx context.Context, cmd Command) (string, error)
	// LookPath reports the resolved path of an executable, or an error
	// when it is not installed.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands on the real host.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = composeEnv(cmd.Env)
	c.Stdin = cmd.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
	if r.Logger != nil {
		r.Logger.Debug("exec", "cmd", cmd.String(), "dir", cmd.Dir)
	}
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = composeEnv(cmd.Env)
	c.Stdin = cmd.Stdin
	out, err := c.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w\n%s", cmd.String(), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func composeEnv(overlay []string) []string {
	if len(overlay) == 0 {
		return nil // inherit parent environment
	}
	return append(os.Environ(), overlay...)
}

// ExitCode extracts the process exit status from a Run/Output error.
// A nil error is 0; a non-exec failure reports 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(interface{ ExitStatus() int }); ok {
			return status.ExitStatus()
		}
	}
	return 1
}
