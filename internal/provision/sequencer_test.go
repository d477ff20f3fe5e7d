package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/neuralinternet/minerup/internal/probe"
)

// stubProbe reports a fixed result.
type stubProbe struct {
	id      string
	present bool
	version string
}

func (p stubProbe) ID() string { return p.id }

func (p stubProbe) Check(context.Context) probe.Result {
	return probe.Result{ID: p.id, Present: p.present, Version: p.version}
}

// stubInstaller counts applications and can flip its probe to present,
// modeling a real install.
type stubInstaller struct {
	applied int
	restart bool
	err     error
	after   *stubProbe
}

func (i *stubInstaller) Apply(context.Context, *RunContext) (InstallResult, error) {
	i.applied++
	if i.err != nil {
		return InstallResult{RestartRequired: i.restart}, i.err
	}
	if i.after != nil {
		i.after.present = true
	}
	return InstallResult{Changed: true, RestartRequired: i.restart}, nil
}

func testRunContext() *RunContext {
	return &RunContext{Mode: ModeAutomated, RunID: "test", Out: &strings.Builder{}}
}

func TestSequencerSkipsSatisfied(t *testing.T) {
	inst := &stubInstaller{}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: stubProbe{id: "docker", present: true, version: "27.0.1"}, Installer: inst},
	}}
	out, err := seq.Run(context.Background(), testRunContext())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if inst.applied != 0 {
		t.Errorf("installer ran %d times for a satisfied dependency", inst.applied)
	}
	if len(out.Skipped) != 1 || out.Skipped[0] != "docker" {
		t.Errorf("skipped = %v, want [docker]", out.Skipped)
	}
}

func TestSequencerSecondRunInstallsNothing(t *testing.T) {
	dockerProbe := &stubProbe{id: "docker"}
	btcliProbe := &stubProbe{id: "btcli"}
	dockerInst := &stubInstaller{after: dockerProbe}
	btcliInst := &stubInstaller{after: btcliProbe}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: dockerProbe, Installer: dockerInst},
		{ID: "btcli", Probe: btcliProbe, Installer: btcliInst},
	}}

	if _, err := seq.Run(context.Background(), testRunContext()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	out, err := seq.Run(context.Background(), testRunContext())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if dockerInst.applied != 1 || btcliInst.applied != 1 {
		t.Errorf("second run re-installed: docker=%d btcli=%d", dockerInst.applied, btcliInst.applied)
	}
	if len(out.Installed) != 0 {
		t.Errorf("second run installed %v", out.Installed)
	}
}

func TestSequencerMandatoryFailureStopsRun(t *testing.T) {
	failing := &stubInstaller{err: fmt.Errorf("mirror unreachable")}
	later := &stubInstaller{}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: &stubProbe{id: "docker"}, Installer: failing},
		{ID: "btcli", Probe: &stubProbe{id: "btcli"}, Installer: later},
	}}
	out, err := seq.Run(context.Background(), testRunContext())
	if err == nil {
		t.Fatal("mandatory failure did not terminate the run")
	}
	if later.applied != 0 {
		t.Errorf("dependency after the failure still ran")
	}
	if len(out.Failures) != 1 || out.Failures[0].ID != "docker" || out.Failures[0].Optional {
		t.Errorf("failures = %+v", out.Failures)
	}
}

func TestSequencerOptionalFailureContinues(t *testing.T) {
	dockerProbe := &stubProbe{id: "docker"}
	failing := &stubInstaller{err: fmt.Errorf("no GPU repo")}
	later := &stubInstaller{}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: dockerProbe, Installer: &stubInstaller{after: dockerProbe}},
		{ID: "toolkit", Probe: &stubProbe{id: "toolkit"}, Installer: failing, Requires: []string{"docker"}, Optional: true},
		{ID: "btcli", Probe: &stubProbe{id: "btcli"}, Installer: later},
	}}
	out, err := seq.Run(context.Background(), testRunContext())
	if err != nil {
		t.Fatalf("optional failure terminated the run: %v", err)
	}
	if later.applied != 1 {
		t.Errorf("run did not continue past the optional failure")
	}
	if len(out.Failures) != 1 || !out.Failures[0].Optional {
		t.Errorf("failures = %+v", out.Failures)
	}
}

func TestSequencerUnmetRequires(t *testing.T) {
	// Mandatory dependency with an unsatisfied requirement stops the run.
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: &stubProbe{id: "docker"}, Installer: &stubInstaller{err: errors.New("down")}, Optional: true},
		{ID: "cuda", Probe: &stubProbe{id: "cuda"}, Installer: &stubInstaller{}, Requires: []string{"docker"}},
	}}
	if _, err := seq.Run(context.Background(), testRunContext()); err == nil {
		t.Fatal("expected error for mandatory dependency with unmet requirement")
	}

	// Optional dependency with an unsatisfied requirement is skipped.
	optInst := &stubInstaller{}
	seq = &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: &stubProbe{id: "docker"}, Installer: &stubInstaller{err: errors.New("down")}, Optional: true},
		{ID: "toolkit", Probe: &stubProbe{id: "toolkit"}, Installer: optInst, Requires: []string{"docker"}, Optional: true},
	}}
	out, err := seq.Run(context.Background(), testRunContext())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if optInst.applied != 0 {
		t.Errorf("optional dependency installed despite unmet requirement")
	}
	if len(out.Failures) != 2 {
		t.Errorf("failures = %+v, want two optional failures", out.Failures)
	}
}

func TestSequencerRestartAccumulates(t *testing.T) {
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: &stubProbe{id: "docker"}, Installer: &stubInstaller{restart: true}},
		{ID: "btcli", Probe: &stubProbe{id: "btcli"}, Installer: &stubInstaller{}},
	}}
	out, err := seq.Run(context.Background(), testRunContext())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.RestartRequired {
		t.Error("restart flag lost after later install")
	}
}

func TestSequencerRestartSurvivesFailure(t *testing.T) {
	seq := &Sequencer{Deps: []Dependency{
		{ID: "docker", Probe: &stubProbe{id: "docker"}, Installer: &stubInstaller{restart: true}},
		{ID: "cuda", Probe: &stubProbe{id: "cuda"}, Installer: &stubInstaller{err: errors.New("apt broke")}},
	}}
	out, err := seq.Run(context.Background(), testRunContext())
	if err == nil {
		t.Fatal("expected failure")
	}
	if !out.RestartRequired {
		t.Error("restart flag not reported alongside the failure")
	}
}

func TestSequencerPinMismatchSkips(t *testing.T) {
	inst := &stubInstaller{}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "cuda", Probe: stubProbe{id: "cuda", present: true, version: "11.8"}, Installer: inst, Pin: "12.8"},
	}}
	rc := testRunContext()
	out, err := seq.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if inst.applied != 0 {
		t.Error("pinned mismatch was force-reinstalled")
	}
	if len(out.Skipped) != 1 {
		t.Errorf("skipped = %v", out.Skipped)
	}
	if msg := rc.Out.(*strings.Builder).String(); !strings.Contains(msg, "WARNING") {
		t.Errorf("mismatch did not warn: %q", msg)
	}
}

func TestSequencerPinMatchSkips(t *testing.T) {
	inst := &stubInstaller{}
	seq := &Sequencer{Deps: []Dependency{
		{ID: "cuda", Probe: stubProbe{id: "cuda", present: true, version: "12.8.1"}, Installer: inst, Pin: "12.8"},
	}}
	if _, err := seq.Run(context.Background(), testRunContext()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if inst.applied != 0 {
		t.Error("patch-level difference triggered a reinstall")
	}
}

func TestValidateOrder(t *testing.T) {
	cases := []struct {
		name    string
		deps    []Dependency
		wantErr bool
	}{
		{"valid", []Dependency{{ID: "a"}, {ID: "b", Requires: []string{"a"}}}, false},
		{"forward reference", []Dependency{{ID: "b", Requires: []string{"a"}}, {ID: "a"}}, true},
		{"duplicate", []Dependency{{ID: "a"}, {ID: "a"}}, true},
		{"empty id", []Dependency{{ID: ""}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateOrder(tc.deps)
			if (err != nil) != tc.wantErr {
				t.Errorf("validateOrder = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStandardDependenciesOrdering(t *testing.T) {
	// The shipped sequence must itself satisfy the ordering validation.
	deps := StandardDependencies(nil, testEnv(t), "")
	if err := validateOrder(deps); err != nil {
		t.Fatalf("standard sequence invalid: %v", err)
	}
	if deps[0].ID != probe.DepDocker {
		t.Errorf("first dependency = %s, want docker", deps[0].ID)
	}
	for _, d := range deps {
		if d.ID == probe.DepCUDA && d.Pin != DefaultCUDAPin {
			t.Errorf("cuda pin = %q, want %q", d.Pin, DefaultCUDAPin)
		}
		if d.ID == probe.DepNvidiaToolkit && !d.Optional {
			t.Error("GPU container support must be optional")
		}
	}
}
