package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	cliconfig "github.com/neuralinternet/minerup/internal/cli/config"
	"github.com/neuralinternet/minerup/internal/envfile"
	"github.com/neuralinternet/minerup/internal/envres"
	"github.com/neuralinternet/minerup/internal/firewall"
	"github.com/neuralinternet/minerup/internal/probe"
	"github.com/neuralinternet/minerup/internal/provision"
	"github.com/neuralinternet/minerup/internal/repo"
	"github.com/neuralinternet/minerup/internal/supervisor"
	"github.com/neuralinternet/minerup/internal/system"
)

type provisionFlags struct {
	automated    bool
	cudaPin      string
	wandbKey     string
	overwriteEnv bool
	noFirewall   bool
	noAutostart  bool
}

func newProvisionCmd(root *rootOptions) *cobra.Command {
	var f provisionFlags

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Bring this host to a running, supervised miner",
		Long: `Probes every managed dependency (docker, GPU container support, CUDA,
bittensor CLI), installs only what is missing, checks for wallet material,
opens the firewall ports, writes the miner .env file, and registers the
miner with pm2. Safe to re-run any number of times: satisfied dependencies
are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := root.resolveProfile()
			if err != nil {
				return err
			}
			mode := resolveMode(cmd, f.automated)
			env, err := envres.Resolve()
			if err != nil {
				return err
			}

			logger := newLogger(root.verbose)
			runner := system.NewExecRunner(logger)
			useSudo := os.Geteuid() != 0
			rc := &provision.RunContext{
				Mode:    mode,
				RunID:   uuid.NewString()[:8],
				Runner:  runner,
				Env:     env,
				Logger:  logger,
				Out:     os.Stdout,
				UseSudo: useSudo,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Scoped privilege: the drop-in is removed on every exit path,
			// interrupt and failure included.
			if mode == provision.ModeAutomated && useSudo {
				guard := system.NewSudoersGuard(runner, useSudo)
				if err := guard.Install(ctx, env.User, rc.RunID); err != nil {
					return err
				}
				defer func() {
					if err := guard.Release(); err != nil {
						printWarn(os.Stderr, "cleanup: %v", err)
					}
				}()
			}

			printOK(os.Stdout, "provisioning host for netuid %d (mode=%s, run=%s)", profile.Netuid, mode, rc.RunID)

			seq := &provision.Sequencer{Deps: provision.StandardDependencies(runner, env, f.cudaPin)}
			outcome, err := seq.Run(ctx, rc)
			if err != nil {
				printFail(os.Stdout, "provisioning failed: %v", err)
				suggestRestart(outcome.RestartRequired)
				return err
			}

			var prompter provision.Prompter = provision.HuhPrompter{}
			if mode == provision.ModeAutomated {
				prompter = provision.AutoPrompter{WalletDefault: provision.DecisionDefer, ConfirmDefault: true}
			}

			gate := &provision.Gate{WalletDir: probe.WalletDir(env.Home), Prompter: prompter}
			decision, err := gate.Evaluate(ctx, rc)
			if err != nil {
				return err
			}
			switch decision {
			case provision.DecisionAbort:
				printWarn(os.Stdout, "stopping before miner configuration at operator request")
				suggestRestart(outcome.RestartRequired)
				return nil
			case provision.DecisionDefer:
				printOK(os.Stdout, "base setup complete; create and fund a wallet, then re-run `minerup provision`")
				suggestRestart(outcome.RestartRequired)
				return nil
			}

			repoDir, err := locateRepo(ctx, runner, env, profile)
			if err != nil {
				return err
			}
			printOK(os.Stdout, "miner checkout: %s", repoDir)

			wandbKey := f.wandbKey
			if wandbKey == "" {
				wandbKey = cliconfig.WandbAPIKeyFromEnv()
			}
			envPath := filepath.Join(repoDir, ".env")
			if err := envfile.Inject(envPath, map[string]string{envfile.KeyWandbAPIKey: wandbKey}, f.overwriteEnv); err != nil {
				return err
			}
			printOK(os.Stdout, "updated %s", envPath)

			if !f.noFirewall {
				if err := applyFirewall(ctx, runner, useSudo, profile.AxonPort); err != nil {
					return err
				}
			}

			sup := &supervisor.Client{Runner: runner, Out: os.Stdout}
			handle, err := sup.Launch(ctx, supervisor.LaunchSpec{
				Netuid:           profile.Netuid,
				SubtensorNetwork: profile.SubtensorNetwork,
				SubtensorAddress: profile.SubtensorAddress,
				AxonPort:         profile.AxonPort,
				WalletName:       profile.WalletName,
				WalletHotkey:     profile.WalletHotkey,
				RepoDir:          repoDir,
				Interpreter:      env.VenvPython(),
				Env:              env.Overlay(),
			})
			if err != nil {
				if errors.Is(err, supervisor.ErrEntryPointMissing) {
					printFail(os.Stdout, "broken checkout: %v", err)
				}
				return err
			}
			printOK(os.Stdout, "miner registered with pm2 as %s", handle.Name)

			persist := !f.noAutostart
			if mode == provision.ModeInteractive && persist {
				persist, err = prompter.Confirm(ctx, "Persist the pm2 process list and enable autostart on boot?", true)
				if err != nil {
					return err
				}
			}
			if persist {
				if err := sup.Save(ctx); err != nil {
					return err
				}
				if err := sup.Startup(ctx); err != nil {
					return err
				}
				printOK(os.Stdout, "pm2 process list saved and autostart enabled")
			}

			suggestRestart(outcome.RestartRequired)
			printOK(os.Stdout, "done")
			return nil
		},
	}
	cmd.SilenceUsage = true

	cmd.Flags().BoolVar(&f.automated, "automated", false, "run without prompts, taking safe defaults (auto-detected from the terminal when unset)")
	cmd.Flags().StringVar(&f.cudaPin, "cuda-version", provision.DefaultCUDAPin, "exact CUDA toolkit version required")
	cmd.Flags().StringVar(&f.wandbKey, "wandb-key", "", "wandb API key written to the miner .env (or MINERUP_WANDB_API_KEY)")
	cmd.Flags().BoolVar(&f.overwriteEnv, "overwrite-env", false, "allow empty values to blank existing .env entries")
	cmd.Flags().BoolVar(&f.noFirewall, "no-firewall", false, "skip ufw rule application")
	cmd.Flags().BoolVar(&f.noAutostart, "no-autostart", false, "skip pm2 save/startup registration")
	return cmd
}

// resolveMode prefers an explicit --automated flag; otherwise a run without
// a terminal on stdin is automated.
func resolveMode(cmd *cobra.Command, automated bool) provision.Mode {
	if cmd.Flags().Changed("automated") {
		if automated {
			return provision.ModeAutomated
		}
		return provision.ModeInteractive
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return provision.ModeInteractive
	}
	return provision.ModeAutomated
}

func locateRepo(ctx context.Context, runner system.Runner, env *envres.Environment, profile *cliconfig.Profile) (string, error) {
	if profile.RepoDir != "" {
		return profile.RepoDir, nil
	}
	cwd, _ := os.Getwd()
	loc := &repo.Locator{Runner: runner, Home: env.Home, WorkDir: cwd}
	return loc.Locate(ctx)
}

// applyFirewall queues every allow rule before enabling the engine, so the
// session performing the provisioning is never cut off by a half-applied
// rule set.
func applyFirewall(ctx context.Context, runner system.Runner, useSudo bool, axonPort int) error {
	fw := &firewall.Client{Runner: runner, Out: os.Stdout, UseSudo: useSudo}
	if !fw.Available() {
		printWarn(os.Stdout, "ufw not installed; skipping firewall configuration")
		return nil
	}
	rules := []firewall.Rule{
		{Port: firewall.PortSSH, Proto: "tcp"},
		{Port: firewall.PortValidator, Proto: "tcp"},
		{Port: axonPort, Proto: "tcp"},
	}
	for _, r := range rules {
		if err := fw.Allow(ctx, r); err != nil {
			return err
		}
	}
	if err := fw.Enable(ctx); err != nil {
		return err
	}
	printOK(os.Stdout, "firewall: allowed %v and enabled ufw", rules)
	return nil
}

func suggestRestart(required bool) {
	if required {
		printWarn(os.Stdout, "a restart is recommended to finish group membership and driver changes: sudo reboot")
	}
}
