package probe

import (
	"context"
	"os"
	"strings"

	"github.com/neuralinternet/minerup/internal/system"
)

// Btcli reports whether the bittensor CLI is installed inside the run's
// virtualenv. The dependency is not version-pinned; any installed version
// satisfies it.
type Btcli struct {
	Runner system.Runner
	// Bin is the expected executable path inside the virtualenv.
	Bin string
}

func (Btcli) ID() string { return DepBtcli }

func (p Btcli) Check(ctx context.Context) Result {
	res := Result{ID: DepBtcli}
	info, err := os.Stat(p.Bin)
	if err != nil || info.IsDir() {
		return res
	}
	res.Present = true
	out, err := p.Runner.Output(ctx, system.Command{Name: p.Bin, Args: []string{"--version"}})
	if err != nil {
		return res
	}
	res.Version = firstVersionToken(strings.TrimSpace(out))
	return res
}
