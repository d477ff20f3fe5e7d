package provision

import (
	"context"
	"fmt"

	"github.com/neuralinternet/minerup/internal/probe"
)

// InstallResult reports what an installer did. RestartRequired marks
// kernel-level or privilege-group changes that only take full effect after
// a host restart or re-login.
type InstallResult struct {
	Changed         bool
	RestartRequired bool
}

// Installer applies the steps that take one dependency from absent to
// present. Callers only invoke it after the probe reported unsatisfied.
type Installer interface {
	Apply(ctx context.Context, rc *RunContext) (InstallResult, error)
}

// Dependency binds a probe to its installer with declared ordering
// constraints. The set is fixed at process start and never persisted.
type Dependency struct {
	ID        string
	Probe     probe.Probe
	Installer Installer
	// Requires lists dependency IDs that must be satisfied first.
	// Constraints must form a DAG consistent with the declared order.
	Requires []string
	// Optional dependencies warn and continue on install failure instead
	// of terminating the run.
	Optional bool
	// Pin is an exact major.minor version requirement. Empty means any
	// installed version satisfies the dependency. A present-but-mismatched
	// version is skipped with a warning, never force-reinstalled.
	Pin string
}

// validateOrder checks that every Requires entry names a dependency that
// appears earlier in the list. This catches cycles and misdeclared
// constraints before any side effect happens.
func validateOrder(deps []Dependency) error {
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		if d.ID == "" {
			return fmt.Errorf("dependency with empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate dependency %q", d.ID)
		}
		for _, req := range d.Requires {
			if !seen[req] {
				return fmt.Errorf("dependency %q requires %q, which is not declared before it", d.ID, req)
			}
		}
		seen[d.ID] = true
	}
	return nil
}
