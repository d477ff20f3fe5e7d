package provision

import (
	"context"

	"github.com/charmbracelet/huh"
)

// Decision is the resolved answer to a blocking operator choice.
type Decision int

const (
	// DecisionProceed continues into the miner phase despite the condition.
	DecisionProceed Decision = iota
	// DecisionAbort stops the run now.
	DecisionAbort
	// DecisionDefer finishes the base phase and exits cleanly so the
	// operator can complete the manual step out of band.
	DecisionDefer
)

func (d Decision) String() string {
	switch d {
	case DecisionProceed:
		return "proceed"
	case DecisionAbort:
		return "abort"
	default:
		return "defer"
	}
}

// Prompter resolves decisions that cannot be taken automatically. The
// interactive implementation blocks on operator input; the automated one
// applies a fixed default policy.
type Prompter interface {
	WalletGate(ctx context.Context) (Decision, error)
	Confirm(ctx context.Context, title string, def bool) (bool, error)
}

// AutoPrompter answers every decision with its configured defaults.
type AutoPrompter struct {
	WalletDefault  Decision
	ConfirmDefault bool
}

func (p AutoPrompter) WalletGate(context.Context) (Decision, error) {
	return p.WalletDefault, nil
}

func (p AutoPrompter) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	return p.ConfirmDefault, nil
}

// HuhPrompter asks the operator through terminal forms.
type HuhPrompter struct{}

func (HuhPrompter) WalletGate(ctx context.Context) (Decision, error) {
	d := DecisionDefer
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[Decision]().
			Title("No wallet found. How do you want to continue?").
			Description("The miner cannot serve until a funded wallet exists under ~/.bittensor/wallets.").
			Options(
				huh.NewOption("Finish base setup and exit; I will create the wallet myself", DecisionDefer),
				huh.NewOption("Continue anyway (miner will fail to serve until a wallet exists)", DecisionProceed),
				huh.NewOption("Abort now", DecisionAbort),
			).
			Value(&d),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return DecisionAbort, err
	}
	return d, nil
}

func (HuhPrompter) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	v := def
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&v),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return v, nil
}
