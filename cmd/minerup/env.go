package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuralinternet/minerup/internal/envfile"
	"github.com/neuralinternet/minerup/internal/envres"
	"github.com/neuralinternet/minerup/internal/system"
)

func newEnvCmd(root *rootOptions) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect or update the miner .env file",
	}
	envCmd.AddCommand(newEnvShowCmd(root))
	envCmd.AddCommand(newEnvSetCmd(root))
	return envCmd
}

func minerEnvPath(root *rootOptions, cmd *cobra.Command) (string, error) {
	profile, err := root.resolveProfile()
	if err != nil {
		return "", err
	}
	env, err := envres.Resolve()
	if err != nil {
		return "", err
	}
	runner := system.NewExecRunner(newLogger(root.verbose))
	repoDir, err := locateRepo(cmd.Context(), runner, env, profile)
	if err != nil {
		return "", err
	}
	return filepath.Join(repoDir, ".env"), nil
}

func newEnvShowCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the parsed miner .env values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := minerEnvPath(root, cmd)
			if err != nil {
				return err
			}
			values, err := envfile.Read(path)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stdout, "env_file=%s\n", path)
			for _, k := range keys {
				fmt.Fprintf(os.Stdout, "%s=%s\n", k, values[k])
			}
			return nil
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func newEnvSetCmd(root *rootOptions) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "set KEY=VALUE [KEY=VALUE...]",
		Short: "Merge key/value settings into the miner .env file",
		Long: `Replaces only the given keys; every other line in the file, comments
included, is preserved. An empty value leaves an existing stored value
alone unless --overwrite is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := make(map[string]string, len(args))
			for _, item := range args {
				parts := strings.SplitN(item, "=", 2)
				if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
					return fmt.Errorf("invalid update %q (expected KEY=VALUE)", item)
				}
				updates[strings.TrimSpace(parts[0])] = parts[1]
			}
			path, err := minerEnvPath(root, cmd)
			if err != nil {
				return err
			}
			if err := envfile.Inject(path, updates, overwrite); err != nil {
				return err
			}
			printOK(os.Stdout, "updated %s", path)
			return nil
		},
	}
	cmd.SilenceUsage = true

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "allow empty values to blank existing entries")
	return cmd
}
