// Package supervisor registers the miner with pm2 and keeps re-invocations
// pointed at the same managed process: the process name is derived
// deterministically from the network identifier, and an existing process of
// that name is replaced rather than duplicated.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/neuralinternet/minerup/internal/repo"
	"github.com/neuralinternet/minerup/internal/system"
)

// ErrEntryPointMissing marks a broken checkout: the miner entry point is
// not on disk. This is a setup error, distinguished from supervisor
// failures so the operator fixes the checkout rather than debugging pm2.
var ErrEntryPointMissing = errors.New("miner entry point missing")

// LaunchSpec is everything needed to start the miner under pm2. Built once
// during the configuration phase and consumed exactly once by Launch; pm2
// persists it if the operator opts into Save.
type LaunchSpec struct {
	Netuid           int
	SubtensorNetwork string
	SubtensorAddress string
	AxonPort         int
	WalletName       string
	WalletHotkey     string
	RepoDir          string
	Interpreter      string
	Env              []string
}

// Handle identifies the registered process.
type Handle struct {
	Name string
}

// ProcessName derives the stable pm2 process name for a network id.
func ProcessName(netuid int) string {
	return fmt.Sprintf("net%d_miner", netuid)
}

// Client shells out to pm2.
type Client struct {
	Runner system.Runner
	Out    io.Writer
}

// Launch validates the entry point, replaces any process already registered
// under the derived name, and starts the miner.
func (c *Client) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	entry := filepath.Join(spec.RepoDir, filepath.FromSlash(repo.EntryPoint))
	if _, err := os.Stat(entry); err != nil {
		return Handle{}, fmt.Errorf("%w: %s", ErrEntryPointMissing, entry)
	}
	if _, err := c.Runner.LookPath("pm2"); err != nil {
		return Handle{}, fmt.Errorf("pm2 not installed: %w", err)
	}

	name := ProcessName(spec.Netuid)
	// Replace, never duplicate: a prior run may have registered this name.
	if _, err := c.Runner.Output(ctx, system.Command{Name: "pm2", Args: []string{"describe", name}}); err == nil {
		if c.Out != nil {
			fmt.Fprintf(c.Out, "[minerup] replacing existing pm2 process %s\n", name)
		}
		if err := c.Runner.Run(ctx, system.Command{Name: "pm2", Args: []string{"delete", name}}); err != nil {
			return Handle{}, fmt.Errorf("pm2 delete %s: %w", name, err)
		}
	}

	args := []string{
		"start", entry,
		"--name", name,
		"--interpreter", spec.Interpreter,
		"--",
		"--netuid", strconv.Itoa(spec.Netuid),
		"--subtensor.network", spec.SubtensorNetwork,
		"--subtensor.chain_endpoint", spec.SubtensorAddress,
		"--wallet.name", spec.WalletName,
		"--wallet.hotkey", spec.WalletHotkey,
		"--axon.port", strconv.Itoa(spec.AxonPort),
		"--logging.debug",
	}
	if err := c.Runner.Run(ctx, system.Command{
		Name: "pm2",
		Args: args,
		Dir:  spec.RepoDir,
		Env:  spec.Env,
	}); err != nil {
		return Handle{}, fmt.Errorf("pm2 start %s: %w", name, err)
	}
	return Handle{Name: name}, nil
}

// Save persists the current pm2 process list so a restart resurrects it.
// Separate from Launch: launching succeeds independent of persistence.
func (c *Client) Save(ctx context.Context) error {
	if err := c.Runner.Run(ctx, system.Command{Name: "pm2", Args: []string{"save"}}); err != nil {
		return fmt.Errorf("pm2 save: %w", err)
	}
	return nil
}

// Startup registers pm2 itself for autostart on boot.
func (c *Client) Startup(ctx context.Context) error {
	if err := c.Runner.Run(ctx, system.Command{Name: "pm2", Args: []string{"startup"}}); err != nil {
		return fmt.Errorf("pm2 startup: %w", err)
	}
	return nil
}
