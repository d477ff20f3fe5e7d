package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cliconfig "github.com/neuralinternet/minerup/internal/cli/config"
	"github.com/neuralinternet/minerup/internal/diag"
	"github.com/neuralinternet/minerup/internal/envres"
	"github.com/neuralinternet/minerup/internal/probe"
	"github.com/neuralinternet/minerup/internal/system"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var bundlePath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Print host diagnostic information for troubleshooting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report bytes.Buffer

			exe, _ := os.Executable()
			exe = strings.TrimSpace(exe)
			look, _ := exec.LookPath("minerup")
			look = strings.TrimSpace(look)
			fmt.Fprintf(&report, "minerup_executable=%s\n", exe)
			if look != "" {
				fmt.Fprintf(&report, "minerup_on_path=%s\n", look)
			}

			env, err := envres.Resolve()
			if err != nil {
				return err
			}
			fmt.Fprintf(&report, "acting_user=%s\n", env.User)
			fmt.Fprintf(&report, "home=%s\n", env.Home)
			fmt.Fprintf(&report, "venv=%s venv_present=%t\n", env.VenvDir, env.VenvPresent())

			runner := system.NewExecRunner(newLogger(root.verbose))
			probes := []probe.Probe{
				probe.Docker{Runner: runner},
				probe.NvidiaToolkit{Runner: runner},
				probe.CUDA{Runner: runner},
				probe.Btcli{Runner: runner, Bin: env.VenvBin("btcli")},
			}
			for _, p := range probes {
				res := p.Check(cmd.Context())
				fmt.Fprintf(&report, "dep=%s present=%t version=%s\n", res.ID, res.Present, res.Version)
			}
			walletDir := probe.WalletDir(env.Home)
			fmt.Fprintf(&report, "wallet_dir=%s wallet_present=%t\n", walletDir, probe.WalletPresent(walletDir))

			cfgPath := root.configPath
			fmt.Fprintf(&report, "config_path=%s\n", cfgPath)
			cfg, err := cliconfig.Load(cfgPath)
			if err != nil {
				fmt.Fprintf(&report, "config_error=%s\n", err.Error())
			} else if cfg == nil {
				fmt.Fprintln(&report, "config_present=false")
			} else {
				fmt.Fprintln(&report, "config_present=true")
				fmt.Fprintf(&report, "current_profile=%s\n", strings.TrimSpace(cfg.CurrentProfile))
				names := make([]string, 0, len(cfg.Profiles))
				for k := range cfg.Profiles {
					names = append(names, k)
				}
				sort.Strings(names)
				for _, name := range names {
					p := cfg.Profiles[name]
					if p == nil {
						continue
					}
					fmt.Fprintf(&report, "profile=%s netuid=%d network=%s axon_port=%d wallet=%s/%s\n",
						name, p.Netuid, p.SubtensorNetwork, p.AxonPort, p.WalletName, p.WalletHotkey)
				}
			}

			os.Stdout.Write(report.Bytes())

			if bundlePath == "" {
				return nil
			}
			return writeBundle(bundlePath, cfgPath, report.Bytes())
		},
	}
	cmd.SilenceUsage = true

	cmd.Flags().StringVar(&bundlePath, "bundle", "", "also write a gzipped support bundle to this path (or directory)")
	return cmd
}

func writeBundle(path, cfgPath string, report []byte) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		name := fmt.Sprintf("minerup-doctor-%s-%s.tar.gz", time.Now().Format("20060102"), uuid.NewString()[:8])
		path = filepath.Join(path, name)
	}
	entries := []diag.Entry{{Name: "doctor.txt", Data: report}}
	if data, err := os.ReadFile(cfgPath); err == nil {
		entries = append(entries, diag.Entry{Name: "config.yaml", Data: data})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := diag.Write(f, entries); err != nil {
		return err
	}
	printOK(os.Stdout, "wrote support bundle to %s", path)
	return nil
}
