package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCommandString(t *testing.T) {
	c := Command{Name: "apt-get", Args: []string{"install", "-y", "docker.io"}}
	if got := c.String(); got != "apt-get install -y docker.io" {
		t.Errorf("String = %q", got)
	}
	if got := (Command{Name: "ufw"}).String(); got != "ufw" {
		t.Errorf("String = %q", got)
	}
}

func TestExitCodeNil(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(errors.New("boom")); got != 1 {
		t.Errorf("ExitCode(plain) = %d", got)
	}
}

func TestFakeRunnerScripting(t *testing.T) {
	fake := NewFakeRunner()
	fake.Respond("docker --version", "Docker version 27.0.3", nil)
	fake.Respond("docker", "", fmt.Errorf("generic docker failure"))

	out, err := fake.Output(context.Background(), Command{Name: "docker", Args: []string{"--version"}})
	if err != nil || out != "Docker version 27.0.3" {
		t.Errorf("first match should win: %q, %v", out, err)
	}
	_, err = fake.Output(context.Background(), Command{Name: "docker", Args: []string{"ps"}})
	if err == nil {
		t.Error("fallback response not used")
	}
	if len(fake.Calls) != 2 {
		t.Errorf("calls = %v", fake.Calls)
	}
}

func TestFakeRunnerStrictMode(t *testing.T) {
	fake := NewFakeRunner()
	fake.StrictMode = true
	err := fake.Run(context.Background(), Command{Name: "rm", Args: []string{"-rf", "/"}})
	if err == nil || !strings.Contains(err.Error(), "unscripted") {
		t.Fatalf("strict mode accepted an unscripted command: %v", err)
	}
}

func TestFakeRunnerLookPath(t *testing.T) {
	fake := NewFakeRunner()
	if _, err := fake.LookPath("docker"); err == nil {
		t.Error("unknown tool resolved")
	}
	fake.Tool("docker", "/usr/bin/docker")
	p, err := fake.LookPath("docker")
	if err != nil || p != "/usr/bin/docker" {
		t.Errorf("LookPath = %q, %v", p, err)
	}
}
