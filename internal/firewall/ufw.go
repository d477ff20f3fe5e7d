// Package firewall applies the small fixed allow-list a miner host needs
// through ufw. Every operation is idempotent; enabling the rule engine is a
// separate step that must run only after all allow rules are in place, so
// the remote session doing the provisioning is never locked out.
package firewall

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/neuralinternet/minerup/internal/system"
)

// Baseline ports every miner host opens in addition to the axon port.
const (
	PortSSH       = 22
	PortValidator = 4444
)

// Rule is one allow entry.
type Rule struct {
	Port  int
	Proto string
}

func (r Rule) String() string {
	return fmt.Sprintf("%d/%s", r.Port, r.Proto)
}

// Client drives ufw through the injected runner. Sudo wraps commands when
// the run is not already privileged.
type Client struct {
	Runner  system.Runner
	Out     io.Writer
	UseSudo bool
}

// Available reports whether ufw is installed. Its absence is handled, not
// fatal: callers skip firewall configuration with a notice.
func (c *Client) Available() bool {
	_, err := c.Runner.LookPath("ufw")
	return err == nil
}

// Allow adds one rule. ufw treats re-adding an existing rule as a no-op, so
// repeated runs converge on the same rule set.
func (c *Client) Allow(ctx context.Context, rule Rule) error {
	if err := c.Runner.Run(ctx, c.root("allow", rule.String())); err != nil {
		return fmt.Errorf("ufw allow %s: %w", rule, err)
	}
	return nil
}

// Enable turns the rule engine on, skipping when it is already active.
// Must be called after every Allow for the run.
func (c *Client) Enable(ctx context.Context) error {
	out, err := c.Runner.Output(ctx, c.root("status"))
	if err == nil && strings.Contains(out, "Status: active") {
		return nil
	}
	if err := c.Runner.Run(ctx, c.root("--force", "enable")); err != nil {
		return fmt.Errorf("ufw enable: %w", err)
	}
	return nil
}

func (c *Client) root(args ...string) system.Command {
	cmd := system.Command{Name: "ufw", Args: args}
	if c.UseSudo {
		cmd = system.Command{Name: "sudo", Args: append([]string{"ufw"}, args...)}
	}
	return cmd
}
