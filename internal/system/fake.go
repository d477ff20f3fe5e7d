package system

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Responses match on the command
// line prefix; unmatched commands succeed with empty output unless
// StrictMode is set.
type FakeRunner struct {
	mu         sync.Mutex
	responses  []fakeResponse
	tools      map[string]string
	Calls      []string
	StrictMode bool
}

type fakeResponse struct {
	prefix string
	output string
	err    error
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{tools: map[string]string{}}
}

// Respond registers output and error for any command whose rendered
// command line starts with prefix. First match wins.
func (f *FakeRunner) Respond(prefix, output string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{prefix: prefix, output: output, err: err})
}

// Tool marks an executable as present on the fake PATH.
func (f *FakeRunner) Tool(name, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools[name] = path
}

func (f *FakeRunner) Run(ctx context.Context, cmd Command) error {
	_, err := f.Output(ctx, cmd)
	return err
}

func (f *FakeRunner) Output(_ context.Context, cmd Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := cmd.String()
	f.Calls = append(f.Calls, line)
	for _, r := range f.responses {
		if strings.HasPrefix(line, r.prefix) {
			return r.output, r.err
		}
	}
	if f.StrictMode {
		return "", fmt.Errorf("unscripted command: %s", line)
	}
	return "", nil
}

func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.tools[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%s: executable file not found in $PATH", name)
}

// CallCount reports how many recorded commands start with prefix.
func (f *FakeRunner) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
