package provision

import (
	"context"

	"github.com/neuralinternet/minerup/internal/probe"
)

// Gate is the wallet soft gate between the base-dependency phase and the
// miner phase. It checks only that wallet files exist; it never validates
// funding or registration.
type Gate struct {
	WalletDir string
	Prompter  Prompter
}

// Evaluate returns the decision for the miner phase. Absence is not an
// error: automated runs defer cleanly, interactive runs ask the operator.
func (g *Gate) Evaluate(ctx context.Context, rc *RunContext) (Decision, error) {
	if probe.WalletPresent(g.WalletDir) {
		return DecisionProceed, nil
	}
	rc.Printf("[minerup] no wallet material found in %s", g.WalletDir)
	rc.Printf("[minerup] create and fund one with: btcli wallet create")
	if rc.Mode == ModeAutomated {
		return DecisionDefer, nil
	}
	return g.Prompter.WalletGate(ctx)
}
