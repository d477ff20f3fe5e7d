// Package envres resolves the acting user's environment: who the run is
// provisioning for, where their home is, and the Python virtualenv the
// miner tooling lives in. Resolution happens once per run; downstream
// steps receive the resolved value rather than re-deriving it.
package envres

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/neuralinternet/minerup/internal/system"
)

// Environment is the resolved execution environment for one run.
type Environment struct {
	// User is the acting user: SUDO_USER when the run was elevated,
	// otherwise the current user.
	User string
	// Home is the acting user's home directory.
	Home string
	// VenvDir is the Python virtualenv root used for miner tooling.
	VenvDir string
}

// Resolve determines the acting user and home directory. When invoked under
// sudo it resolves the invoking user, not root, so state lands in the
// operator's home.
func Resolve() (*Environment, error) {
	name := strings.TrimSpace(os.Getenv("SUDO_USER"))
	if name == "" || name == "root" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("resolve current user: %w", err)
		}
		return fromUser(u)
	}
	u, err := user.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("resolve SUDO_USER %q: %w", name, err)
	}
	return fromUser(u)
}

func fromUser(u *user.User) (*Environment, error) {
	if strings.TrimSpace(u.HomeDir) == "" {
		return nil, fmt.Errorf("user %s has no home directory", u.Username)
	}
	return &Environment{
		User:    u.Username,
		Home:    u.HomeDir,
		VenvDir: filepath.Join(u.HomeDir, "venv"),
	}, nil
}

// VenvBin returns the path of an executable inside the virtualenv.
func (e *Environment) VenvBin(name string) string {
	return filepath.Join(e.VenvDir, "bin", name)
}

// VenvPython returns the virtualenv's python interpreter path.
func (e *Environment) VenvPython() string {
	return e.VenvBin("python")
}

// VenvPresent reports whether a usable virtualenv already exists.
func (e *Environment) VenvPresent() bool {
	info, err := os.Stat(e.VenvBin("activate"))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// EnsureVenv creates the virtualenv when absent. Returns whether a create
// actually happened, which makes re-invocation a no-op.
func (e *Environment) EnsureVenv(ctx context.Context, runner system.Runner) (bool, error) {
	if e.VenvPresent() {
		return false, nil
	}
	if _, err := runner.LookPath("python3"); err != nil {
		return false, fmt.Errorf("virtualenv: python3 not installed: %w", err)
	}
	if err := runner.Run(ctx, system.Command{Name: "python3", Args: []string{"-m", "venv", e.VenvDir}}); err != nil {
		return false, fmt.Errorf("create virtualenv %s: %w", e.VenvDir, err)
	}
	return true, nil
}

// Overlay returns environment variables that activate the virtualenv for a
// child process. The ambient process environment is never modified.
func (e *Environment) Overlay() []string {
	return []string{
		"VIRTUAL_ENV=" + e.VenvDir,
		"PATH=" + filepath.Join(e.VenvDir, "bin") + string(os.PathListSeparator) + os.Getenv("PATH"),
	}
}
