package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// End-to-end behavior of sequencer plus gate for the three canonical hosts:
// a bare machine without a wallet, a fully provisioned machine, and a
// machine with a conflicting pinned version.

func TestBareHostAutomatedDefersAtGate(t *testing.T) {
	dockerProbe := &stubProbe{id: "docker"}
	btcliProbe := &stubProbe{id: "btcli"}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: dockerProbe, Installer: &stubInstaller{after: dockerProbe, restart: true}},
		{ID: "btcli", Probe: btcliProbe, Installer: &stubInstaller{after: btcliProbe}},
	}}
	rc := testRunContext()

	out, err := seq.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("sequencer: %v", err)
	}
	if len(out.Installed) != 2 {
		t.Errorf("installed = %v, want both", out.Installed)
	}
	if !out.RestartRequired {
		t.Error("restart flag lost")
	}

	gate := &Gate{WalletDir: filepath.Join(t.TempDir(), "wallets"), Prompter: AutoPrompter{}}
	d, err := gate.Evaluate(context.Background(), rc)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	// The base phase completed; the miner phase is deferred, not failed.
	if d != DecisionDefer {
		t.Errorf("decision = %s, want defer", d)
	}
}

func TestProvisionedHostIsNoOp(t *testing.T) {
	inst := &stubInstaller{}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: stubProbe{id: "docker", present: true, version: "27.0.3"}, Installer: inst},
		{ID: "cuda", Probe: stubProbe{id: "cuda", present: true, version: "12.8.1"}, Installer: inst, Pin: "12.8"},
		{ID: "btcli", Probe: stubProbe{id: "btcli", present: true, version: "9.1.0"}, Installer: inst},
	}}
	rc := testRunContext()

	out, err := seq.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("sequencer: %v", err)
	}
	if inst.applied != 0 {
		t.Errorf("fully provisioned host still installed %d times", inst.applied)
	}
	if out.RestartRequired {
		t.Error("no-op run requested a restart")
	}

	walletDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(walletDir, "default"), 0o755); err != nil {
		t.Fatal(err)
	}
	gate := &Gate{WalletDir: walletDir, Prompter: AutoPrompter{WalletDefault: DecisionAbort}}
	d, err := gate.Evaluate(context.Background(), rc)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if d != DecisionProceed {
		t.Errorf("decision = %s, want proceed", d)
	}
}

func TestConflictingPinnedVersionWarnsAndContinues(t *testing.T) {
	inst := &stubInstaller{}
	btcliProbe := &stubProbe{id: "btcli"}
	later := &stubInstaller{after: btcliProbe}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "cuda", Probe: stubProbe{id: "cuda", present: true, version: "11.4"}, Installer: inst, Pin: "12.8"},
		{ID: "btcli", Probe: btcliProbe, Installer: later},
	}}

	out, err := seq.Run(context.Background(), testRunContext())
	if err != nil {
		t.Fatalf("sequencer: %v", err)
	}
	if inst.applied != 0 {
		t.Error("conflicting version was reinstalled")
	}
	if later.applied != 1 {
		t.Error("run did not continue past the version conflict")
	}
	if len(out.Skipped) != 1 || out.Skipped[0] != "cuda" {
		t.Errorf("skipped = %v", out.Skipped)
	}
}
