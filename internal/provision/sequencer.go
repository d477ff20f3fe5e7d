package provision

import (
	"context"
	"fmt"

	"github.com/neuralinternet/minerup/internal/probe"
)

// Failure records one installer failure.
type Failure struct {
	ID       string
	Optional bool
	Err      error
}

// Outcome is the accumulated result of a sequencer run.
type Outcome struct {
	// RestartRequired is set monotonically by any installer that made a
	// restart-sensitive change. It is advisory: the run never blocks on it.
	RestartRequired bool
	Installed       []string
	Skipped         []string
	Failures        []Failure
}

// Sequencer walks the managed dependencies in declared order: probe, skip
// when satisfied, install when not. A mandatory installer failure
// terminates the run immediately; optional failures warn and continue.
type Sequencer struct {
	Deps []Dependency
}

// Run executes the sequence. The returned Outcome is valid even when err is
// non-nil, so callers can surface partial results and the restart flag.
func (s *Sequencer) Run(ctx context.Context, rc *RunContext) (Outcome, error) {
	var out Outcome
	if err := validateOrder(s.Deps); err != nil {
		return out, err
	}

	satisfied := make(map[string]bool, len(s.Deps))
	for _, dep := range s.Deps {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res := dep.Probe.Check(ctx)

		switch {
		case res.Present && dep.Pin == "":
			rc.Printf("[minerup] %s: present (%s), skipping", dep.ID, orUnknown(res.Version))
			out.Skipped = append(out.Skipped, dep.ID)
			satisfied[dep.ID] = true
			continue
		case res.Present && probe.MajorMinor(res.Version) == dep.Pin:
			rc.Printf("[minerup] %s: present at pinned version %s, skipping", dep.ID, dep.Pin)
			out.Skipped = append(out.Skipped, dep.ID)
			satisfied[dep.ID] = true
			continue
		case res.Present:
			// Present at the wrong version: not force-reinstalled.
			rc.Printf("[minerup] WARNING: %s is installed at %s but %s is pinned; leaving it alone", dep.ID, orUnknown(res.Version), dep.Pin)
			out.Skipped = append(out.Skipped, dep.ID)
			satisfied[dep.ID] = true
			continue
		}

		if unmet := unmetRequires(dep, satisfied); unmet != "" {
			if dep.Optional {
				rc.Printf("[minerup] WARNING: skipping optional %s: requires %s, which is not satisfied", dep.ID, unmet)
				out.Failures = append(out.Failures, Failure{ID: dep.ID, Optional: true, Err: fmt.Errorf("requires %s", unmet)})
				continue
			}
			return out, fmt.Errorf("cannot install %s: required dependency %s is not satisfied", dep.ID, unmet)
		}

		rc.Printf("[minerup] %s: not installed, installing...", dep.ID)
		result, err := dep.Installer.Apply(ctx, rc)
		if result.RestartRequired {
			out.RestartRequired = true
		}
		if err != nil {
			if dep.Optional {
				rc.Printf("[minerup] WARNING: optional dependency %s failed to install: %v (continuing, CPU-only paths remain usable)", dep.ID, err)
				out.Failures = append(out.Failures, Failure{ID: dep.ID, Optional: true, Err: err})
				continue
			}
			out.Failures = append(out.Failures, Failure{ID: dep.ID, Err: err})
			return out, fmt.Errorf("install %s: %w", dep.ID, err)
		}
		out.Installed = append(out.Installed, dep.ID)
		satisfied[dep.ID] = true
		rc.Printf("[minerup] %s: installed", dep.ID)
	}
	return out, nil
}

func unmetRequires(dep Dependency, satisfied map[string]bool) string {
	for _, req := range dep.Requires {
		if !satisfied[req] {
			return req
		}
	}
	return ""
}

func orUnknown(v string) string {
	if v == "" {
		return "version unknown"
	}
	return v
}
