// Package repo resolves the miner project checkout on disk. The location is
// resolved once per run and stays stable for the remainder of it; env-file
// injection and the supervisor handoff both depend on it.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neuralinternet/minerup/internal/system"
)

// EntryPoint is the miner entry point relative to the project root.
const EntryPoint = "neurons/miner.py"

// DefaultCloneURL is the upstream used for last-resort checkouts.
const DefaultCloneURL = "https://github.com/neuralinternet/compute-subnet.git"

// FixedDir returns the conventional checkout location under a home dir.
func FixedDir(home string) string {
	return filepath.Join(home, "compute-subnet")
}

// Locator resolves the project root. Search order: an existing git checkout
// at the fixed path, a checkout at the working directory, either location
// holding the entry point without version control, then a fresh clone into
// the fixed path.
type Locator struct {
	Runner   system.Runner
	Home     string
	WorkDir  string
	CloneURL string
}

// Locate returns the resolved project root.
func (l *Locator) Locate(ctx context.Context) (string, error) {
	fixed := FixedDir(l.Home)
	for _, dir := range []string{fixed, l.WorkDir} {
		if dir == "" {
			continue
		}
		if isCheckout(dir) {
			return dir, nil
		}
	}
	for _, dir := range []string{fixed, l.WorkDir} {
		if dir == "" {
			continue
		}
		if hasEntryPoint(dir) {
			return dir, nil
		}
	}
	url := l.CloneURL
	if url == "" {
		url = DefaultCloneURL
	}
	if _, err := l.Runner.LookPath("git"); err != nil {
		return "", fmt.Errorf("no miner checkout found and git is not installed: %w", err)
	}
	if err := l.Runner.Run(ctx, system.Command{Name: "git", Args: []string{"clone", url, fixed}}); err != nil {
		return "", fmt.Errorf("clone %s: %w", url, err)
	}
	if !hasEntryPoint(fixed) {
		return "", fmt.Errorf("fresh checkout at %s is missing %s", fixed, EntryPoint)
	}
	return fixed, nil
}

func isCheckout(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return false
	}
	return hasEntryPoint(dir)
}

func hasEntryPoint(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(EntryPoint)))
	return err == nil && info.Mode().IsRegular()
}
