package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuralinternet/minerup/internal/envres"
	"github.com/neuralinternet/minerup/internal/supervisor"
	"github.com/neuralinternet/minerup/internal/system"
)

func newLaunchCmd(root *rootOptions) *cobra.Command {
	var save bool
	var autostart bool

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Register the miner with pm2 on an already-provisioned host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := root.resolveProfile()
			if err != nil {
				return err
			}
			env, err := envres.Resolve()
			if err != nil {
				return err
			}
			runner := system.NewExecRunner(newLogger(root.verbose))

			repoDir, err := locateRepo(cmd.Context(), runner, env, profile)
			if err != nil {
				return err
			}

			sup := &supervisor.Client{Runner: runner, Out: os.Stdout}
			handle, err := sup.Launch(cmd.Context(), supervisor.LaunchSpec{
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

			if save {
				if err := sup.Save(cmd.Context()); err != nil {
					return err
				}
			}
			if autostart {
				if err := sup.Startup(cmd.Context()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.SilenceUsage = true

	cmd.Flags().BoolVar(&save, "save", true, "persist the pm2 process list after launching")
	cmd.Flags().BoolVar(&autostart, "autostart", false, "register pm2 for autostart on boot")
	return cmd
}
