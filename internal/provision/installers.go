package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/neuralinternet/minerup/internal/system"
)

// aptInstall installs packages through apt-get, running `apt-get update`
// once per run. Downloads have no orchestrator-level timeout; a hung mirror
// hangs the run.
func aptInstall(ctx context.Context, rc *RunContext, pkgs ...string) error {
	if _, err := rc.Runner.LookPath("apt-get"); err != nil {
		return fmt.Errorf("apt-get not available: %w", err)
	}
	noninteractive := []string{"DEBIAN_FRONTEND=noninteractive"}
	if !rc.aptUpdated {
		if err := rc.Runner.Run(ctx, rc.Root(system.Command{
			Name: "apt-get", Args: []string{"update", "-y"}, Env: noninteractive,
		})); err != nil {
			return fmt.Errorf("apt-get update: %w", err)
		}
		rc.aptUpdated = true
	}
	args := append([]string{"install", "-y"}, pkgs...)
	if err := rc.Runner.Run(ctx, rc.Root(system.Command{
		Name: "apt-get", Args: args, Env: noninteractive,
	})); err != nil {
		return fmt.Errorf("apt-get install %s: %w", strings.Join(pkgs, " "), err)
	}
	return nil
}

// DockerInstaller installs the docker engine and puts the acting user in
// the docker group. Group membership is not visible to the current shell,
// so automated runs repair the control socket immediately while interactive
// runs tell the operator a re-login is needed.
type DockerInstaller struct{}

func (DockerInstaller) Apply(ctx context.Context, rc *RunContext) (InstallResult, error) {
	if err := aptInstall(ctx, rc, "docker.io"); err != nil {
		return InstallResult{}, err
	}
	if err := rc.Runner.Run(ctx, rc.Root(system.Command{
		Name: "usermod", Args: []string{"-aG", "docker", rc.Env.User},
	})); err != nil {
		return InstallResult{Changed: true, RestartRequired: true}, fmt.Errorf("add %s to docker group: %w", rc.Env.User, err)
	}
	if rc.Mode == ModeAutomated {
		// Let this very run use the socket without re-login.
		if err := rc.Runner.Run(ctx, rc.Root(system.Command{
			Name: "chown", Args: []string{"root:docker", "/var/run/docker.sock"},
		})); err != nil {
			return InstallResult{Changed: true, RestartRequired: true}, fmt.Errorf("repair docker socket ownership: %w", err)
		}
		if err := rc.Runner.Run(ctx, rc.Root(system.Command{
			Name: "chmod", Args: []string{"g+rw", "/var/run/docker.sock"},
		})); err != nil {
			return InstallResult{Changed: true, RestartRequired: true}, fmt.Errorf("repair docker socket mode: %w", err)
		}
	} else {
		rc.Printf("[minerup] added %s to the docker group; log out and back in (or restart) for it to take effect", rc.Env.User)
	}
	return InstallResult{Changed: true, RestartRequired: true}, nil
}

// NvidiaToolkitInstaller installs the NVIDIA container toolkit and wires it
// into docker. Optional: hosts without a GPU still run CPU-only paths.
type NvidiaToolkitInstaller struct{}

func (NvidiaToolkitInstaller) Apply(ctx context.Context, rc *RunContext) (InstallResult, error) {
	if err := aptInstall(ctx, rc, "nvidia-container-toolkit"); err != nil {
		return InstallResult{}, err
	}
	if err := rc.Runner.Run(ctx, rc.Root(system.Command{
		Name: "nvidia-ctk", Args: []string{"runtime", "configure", "--runtime=docker"},
	})); err != nil {
		return InstallResult{Changed: true}, fmt.Errorf("configure docker runtime: %w", err)
	}
	if err := rc.Runner.Run(ctx, rc.Root(system.Command{
		Name: "systemctl", Args: []string{"restart", "docker"},
	})); err != nil {
		return InstallResult{Changed: true, RestartRequired: true}, fmt.Errorf("restart docker: %w", err)
	}
	return InstallResult{Changed: true, RestartRequired: true}, nil
}

// CUDAInstaller installs the pinned CUDA toolkit. Driver-adjacent, so it
// always marks the run restart-sensitive.
type CUDAInstaller struct {
	Pin string
}

func (i CUDAInstaller) Apply(ctx context.Context, rc *RunContext) (InstallResult, error) {
	pkg := "cuda-toolkit-" + strings.ReplaceAll(i.Pin, ".", "-")
	if err := aptInstall(ctx, rc, pkg); err != nil {
		return InstallResult{}, err
	}
	return InstallResult{Changed: true, RestartRequired: true}, nil
}

// BtcliInstaller installs the bittensor CLI into the run's virtualenv,
// creating the virtualenv first when absent. Runs as the acting user, no
// privilege needed.
type BtcliInstaller struct{}

func (BtcliInstaller) Apply(ctx context.Context, rc *RunContext) (InstallResult, error) {
	created, err := rc.Env.EnsureVenv(ctx, rc.Runner)
	if err != nil {
		return InstallResult{}, err
	}
	if created {
		rc.Printf("[minerup] created virtualenv at %s", rc.Env.VenvDir)
	}
	if err := rc.Runner.Run(ctx, system.Command{
		Name: rc.Env.VenvBin("pip"),
		Args: []string{"install", "--upgrade", "bittensor-cli"},
		Env:  rc.Env.Overlay(),
	}); err != nil {
		return InstallResult{Changed: created}, fmt.Errorf("pip install bittensor-cli: %w", err)
	}
	return InstallResult{Changed: true}, nil
}
