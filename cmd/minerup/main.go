package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	cliconfig "github.com/neuralinternet/minerup/internal/cli/config"
)

type rootOptions struct {
	configPath  string
	profileName string
	verbose     bool
}

func (r *rootOptions) resolveProfile() (*cliconfig.Profile, error) {
	cfg, err := cliconfig.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	profile, _, err := cfg.Resolve(r.profileName)
	if err != nil {
		return nil, err
	}
	if err := cliconfig.ApplyEnvOverrides(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "minerup",
		Short: "Provision a host to run a compute-subnet miner",
	}
	defaultConfig := os.Getenv("MINERUP_CONFIG")
	if defaultConfig == "" {
		defaultConfig = cliconfig.DefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to minerup config file (default $HOME/.minerup/config)")
	rootCmd.PersistentFlags().StringVar(&opts.profileName, "profile", "", "profile name within the config (overrides currentProfile)")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log every executed command")

	rootCmd.AddCommand(newProvisionCmd(opts))
	rootCmd.AddCommand(newLaunchCmd(opts))
	rootCmd.AddCommand(newEnvCmd(opts))
	rootCmd.AddCommand(newDoctorCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
