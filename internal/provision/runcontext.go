// Package provision implements the idempotent, resumable provisioning
// engine: probe each managed dependency, install only what is missing,
// accumulate the restart flag, and gate the miner phase on wallet material.
package provision

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/neuralinternet/minerup/internal/envres"
	"github.com/neuralinternet/minerup/internal/system"
)

// Mode selects prompting behavior. It never changes which dependencies are
// checked, only how unresolved decisions are answered.
type Mode int

const (
	ModeInteractive Mode = iota
	ModeAutomated
)

func (m Mode) String() string {
	if m == ModeAutomated {
		return "automated"
	}
	return "interactive"
}

// RunContext carries the per-run state threaded through every component.
// Nothing in here is ambient or global; re-invocation builds a fresh one.
type RunContext struct {
	Mode    Mode
	RunID   string
	Runner  system.Runner
	Env     *envres.Environment
	Logger  *slog.Logger
	Out     io.Writer
	UseSudo bool

	aptUpdated bool
}

// Printf writes a user-facing progress line.
func (rc *RunContext) Printf(format string, args ...any) {
	if rc.Out == nil {
		return
	}
	fmt.Fprintf(rc.Out, format+"\n", args...)
}

// Root wraps a command with sudo when the run is not already privileged.
// -E keeps overlay variables (DEBIAN_FRONTEND and friends) visible to the
// elevated process.
func (rc *RunContext) Root(cmd system.Command) system.Command {
	if !rc.UseSudo {
		return cmd
	}
	args := append([]string{"-E", cmd.Name}, cmd.Args...)
	cmd.Name = "sudo"
	cmd.Args = args
	return cmd
}
