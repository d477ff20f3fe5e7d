package system

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// SudoersGuard manages a temporary passwordless-sudo drop-in so an automated
// run can drive apt/systemctl without prompting mid-flight. Release must run
// on every exit path (error, signal, normal completion); callers defer it
// immediately after Install succeeds.
type SudoersGuard struct {
	Runner Runner
	// Dir is the sudoers drop-in directory, /etc/sudoers.d on a real host.
	Dir string
	// UseSudo wraps the file operations with sudo when the run itself is
	// not privileged.
	UseSudo bool

	mu   sync.Mutex
	path string
}

func NewSudoersGuard(runner Runner, useSudo bool) *SudoersGuard {
	return &SudoersGuard{Runner: runner, Dir: "/etc/sudoers.d", UseSudo: useSudo}
}

// Install writes the drop-in granting user passwordless sudo for the
// duration of the run. Calling Install twice is an error.
func (g *SudoersGuard) Install(ctx context.Context, user, runID string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return fmt.Errorf("sudoers guard: user is required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.path != "" {
		return fmt.Errorf("sudoers guard: already installed at %s", g.path)
	}
	path := filepath.Join(g.Dir, "minerup-"+runID)
	content := fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", user)
	cmd := Command{
		Name:  "install",
		Args:  []string{"-m", "0440", "/dev/stdin", path},
		Stdin: strings.NewReader(content),
	}
	if g.UseSudo {
		cmd = Command{Name: "sudo", Args: append([]string{"install"}, cmd.Args...), Stdin: cmd.Stdin}
	}
	if err := g.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("sudoers guard: write %s: %w", path, err)
	}
	g.path = path
	return nil
}

// Release removes the drop-in. Safe to call multiple times and when Install
// never ran. It deliberately ignores the run's cancellation: cleanup must
// happen even when the run was interrupted.
func (g *SudoersGuard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.path == "" {
		return nil
	}
	path := g.path
	g.path = ""
	cmd := Command{Name: "rm", Args: []string{"-f", path}}
	if g.UseSudo {
		cmd = Command{Name: "sudo", Args: append([]string{"rm"}, cmd.Args...)}
	}
	if err := g.Runner.Run(context.Background(), cmd); err != nil {
		return fmt.Errorf("sudoers guard: remove %s: %w", path, err)
	}
	return nil
}

// Active reports whether a drop-in is currently installed.
func (g *SudoersGuard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.path != ""
}
