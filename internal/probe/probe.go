// Package probe implements the read-only dependency checks the provisioning
// sequencer consults before deciding to install anything. Probes never
// fail on absence: a missing dependency is a normal result, not an error.
package probe

import "context"

// Dependency identifiers used across probes, installers, and the sequencer.
const (
	DepDocker        = "docker"
	DepNvidiaToolkit = "nvidia-container-toolkit"
	DepCUDA          = "cuda"
	DepBtcli         = "btcli"
)

// Result is the outcome of one probe. Version is empty when the dependency
// is absent or does not report one.
type Result struct {
	ID      string
	Present bool
	Version string
}

// Probe checks the host for one managed dependency. Check is side-effect
// free and produced fresh on every invocation; the host is the source of
// truth, never cached state.
type Probe interface {
	ID() string
	Check(ctx context.Context) Result
}
