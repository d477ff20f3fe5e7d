package probe

import (
	"context"
	"regexp"
	"strings"

	"github.com/neuralinternet/minerup/internal/system"
)

var dockerVersionRE = regexp.MustCompile(`Docker version ([0-9][0-9A-Za-z.+-]*)`)

// Docker reports whether the docker engine CLI is installed.
type Docker struct {
	Runner system.Runner
}

func (Docker) ID() string { return DepDocker }

func (p Docker) Check(ctx context.Context) Result {
	res := Result{ID: DepDocker}
	if _, err := p.Runner.LookPath("docker"); err != nil {
		return res
	}
	res.Present = true
	out, err := p.Runner.Output(ctx, system.Command{Name: "docker", Args: []string{"--version"}})
	if err != nil {
		return res
	}
	if m := dockerVersionRE.FindStringSubmatch(out); m != nil {
		res.Version = strings.TrimSuffix(m[1], ",")
	}
	return res
}

// NvidiaToolkit reports whether the NVIDIA container toolkit is installed,
// which is what lets docker expose GPUs to containers.
type NvidiaToolkit struct {
	Runner system.Runner
}

func (NvidiaToolkit) ID() string { return DepNvidiaToolkit }

func (p NvidiaToolkit) Check(ctx context.Context) Result {
	res := Result{ID: DepNvidiaToolkit}
	if _, err := p.Runner.LookPath("nvidia-ctk"); err != nil {
		return res
	}
	res.Present = true
	out, err := p.Runner.Output(ctx, system.Command{Name: "nvidia-ctk", Args: []string{"--version"}})
	if err != nil {
		return res
	}
	res.Version = firstVersionToken(out)
	return res
}

var versionTokenRE = regexp.MustCompile(`\b([0-9]+\.[0-9]+(?:\.[0-9]+)?)\b`)

func firstVersionToken(s string) string {
	if m := versionTokenRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
