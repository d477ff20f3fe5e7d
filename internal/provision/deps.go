package provision

import (
	"github.com/neuralinternet/minerup/internal/envres"
	"github.com/neuralinternet/minerup/internal/probe"
	"github.com/neuralinternet/minerup/internal/system"
)

// DefaultCUDAPin is the CUDA toolkit version the miner stack is built
// against. Exact-match pinned; a different installed version is left alone.
const DefaultCUDAPin = "12.8"

// StandardDependencies returns the fixed, hand-ordered dependency sequence
// for a miner host: docker, then GPU container support (optional), then the
// CUDA toolkit, then the bittensor CLI.
func StandardDependencies(runner system.Runner, env *envres.Environment, cudaPin string) []Dependency {
	if cudaPin == "" {
		cudaPin = DefaultCUDAPin
	}
	return []Dependency{
		{
			ID:        probe.DepDocker,
			Probe:     probe.Docker{Runner: runner},
			Installer: DockerInstaller{},
		},
		{
			ID:        probe.DepNvidiaToolkit,
			Probe:     probe.NvidiaToolkit{Runner: runner},
			Installer: NvidiaToolkitInstaller{},
			Requires:  []string{probe.DepDocker},
			Optional:  true,
		},
		{
			ID:        probe.DepCUDA,
			Probe:     probe.CUDA{Runner: runner},
			Installer: CUDAInstaller{Pin: cudaPin},
			Requires:  []string{probe.DepDocker},
			Pin:       cudaPin,
		},
		{
			ID:        probe.DepBtcli,
			Probe:     probe.Btcli{Runner: runner, Bin: env.VenvBin("btcli")},
			Installer: BtcliInstaller{},
		},
	}
}
