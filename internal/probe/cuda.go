package probe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/neuralinternet/minerup/internal/system"
)

// CUDA probes the installed CUDA toolkit version from three independent
// sources, most authoritative first:
//
//  1. the version manifest <root>/cuda/version.json,
//  2. the <root>/cuda symlink, whose target name encodes the version,
//  3. `nvcc --version` self-report.
//
// The first source that yields a version wins.
type CUDA struct {
	Runner system.Runner
	// Root is the toolkit install prefix, /usr/local on a real host.
	Root string
}

func (CUDA) ID() string { return DepCUDA }

func (p CUDA) Check(ctx context.Context) Result {
	res := Result{ID: DepCUDA}
	root := p.Root
	if root == "" {
		root = "/usr/local"
	}
	if v := versionFromManifest(filepath.Join(root, "cuda", "version.json")); v != "" {
		res.Present = true
		res.Version = v
		return res
	}
	if v := versionFromSymlink(filepath.Join(root, "cuda")); v != "" {
		res.Present = true
		res.Version = v
		return res
	}
	if v := p.versionFromNvcc(ctx); v != "" {
		res.Present = true
		res.Version = v
		return res
	}
	return res
}

type cudaManifest struct {
	CUDA struct {
		Version string `json:"version"`
	} `json:"cuda"`
}

func versionFromManifest(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var m cudaManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	return MajorMinor(m.CUDA.Version)
}

var cudaDirRE = regexp.MustCompile(`cuda-([0-9]+\.[0-9]+)`)

func versionFromSymlink(link string) string {
	target, err := os.Readlink(link)
	if err != nil {
		return ""
	}
	if m := cudaDirRE.FindStringSubmatch(filepath.Base(target)); m != nil {
		return m[1]
	}
	return ""
}

var nvccReleaseRE = regexp.MustCompile(`release ([0-9]+\.[0-9]+)`)

func (p CUDA) versionFromNvcc(ctx context.Context) string {
	if _, err := p.Runner.LookPath("nvcc"); err != nil {
		return ""
	}
	out, err := p.Runner.Output(ctx, system.Command{Name: "nvcc", Args: []string{"--version"}})
	if err != nil {
		return ""
	}
	if m := nvccReleaseRE.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	return ""
}

// MajorMinor trims a version string to its major.minor prefix, the
// granularity the CUDA pin is compared at.
func MajorMinor(v string) string {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 3)
	if len(parts) < 2 {
		return strings.TrimSpace(v)
	}
	return parts[0] + "." + parts[1]
}
