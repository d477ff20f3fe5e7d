package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models the minerup config file: named profiles plus the one
// currently selected, so a single workstation can drive several miners.
type Config struct {
	CurrentProfile string              `yaml:"currentProfile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
}

// Profile holds the miner parameters for one deployment.
type Profile struct {
	Netuid           int    `yaml:"netuid"`
	SubtensorNetwork string `yaml:"subtensorNetwork"`
	SubtensorAddress string `yaml:"subtensorAddress"`
	AxonPort         int    `yaml:"axonPort"`
	WalletName       string `yaml:"walletName"`
	WalletHotkey     string `yaml:"walletHotkey"`
	RepoDir          string `yaml:"repoDir"`
}

// Documented defaults, used when neither config nor environment provides a
// value.
const (
	DefaultNetuid           = 27
	DefaultSubtensorNetwork = "finney"
	DefaultSubtensorAddress = "wss://entrypoint-finney.opentensor.ai:443"
	DefaultAxonPort         = 8091
	DefaultWalletName       = "default"
	DefaultWalletHotkey     = "default"
)

// ErrProfileNotFound indicates the requested profile is missing.
var ErrProfileNotFound = errors.New("profile not found")

// DefaultProfile returns a profile populated with the documented defaults.
func DefaultProfile() *Profile {
	return &Profile{
		Netuid:           DefaultNetuid,
		SubtensorNetwork: DefaultSubtensorNetwork,
		SubtensorAddress: DefaultSubtensorAddress,
		AxonPort:         DefaultAxonPort,
		WalletName:       DefaultWalletName,
		WalletHotkey:     DefaultWalletHotkey,
	}
}

// Load decodes the config file. Missing files return (nil, nil).
func Load(path string) (*Config, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	expanded, err := expandPath(trimmed)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating parent directories if needed.
func (c *Config) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}
	return os.WriteFile(expanded, data, 0o600)
}

// Resolve picks a profile either by explicit name or the currentProfile
// value, falling back to the documented defaults when the config is empty.
func (c *Config) Resolve(name string) (*Profile, string, error) {
	if c == nil {
		return DefaultProfile(), "", nil
	}
	profName := strings.TrimSpace(name)
	if profName == "" {
		profName = c.CurrentProfile
	}
	if profName == "" {
		return DefaultProfile(), "", nil
	}
	p, ok := c.Profiles[profName]
	if !ok {
		return nil, profName, fmt.Errorf("%w: %s", ErrProfileNotFound, profName)
	}
	filled := *p
	applyDefaults(&filled)
	return &filled, profName, nil
}

func applyDefaults(p *Profile) {
	if p.Netuid == 0 {
		p.Netuid = DefaultNetuid
	}
	if p.SubtensorNetwork == "" {
		p.SubtensorNetwork = DefaultSubtensorNetwork
	}
	if p.SubtensorAddress == "" {
		p.SubtensorAddress = DefaultSubtensorAddress
	}
	if p.AxonPort == 0 {
		p.AxonPort = DefaultAxonPort
	}
	if p.WalletName == "" {
		p.WalletName = DefaultWalletName
	}
	if p.WalletHotkey == "" {
		p.WalletHotkey = DefaultWalletHotkey
	}
}

// ApplyEnvOverrides layers the MINERUP_* environment variables over a
// profile. These are how automated runs parameterize the flow without a
// config file.
func ApplyEnvOverrides(p *Profile) error {
	if v := strings.TrimSpace(os.Getenv("MINERUP_NETUID")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MINERUP_NETUID: %w", err)
		}
		p.Netuid = n
	}
	if v := strings.TrimSpace(os.Getenv("MINERUP_SUBTENSOR_NETWORK")); v != "" {
		p.SubtensorNetwork = v
	}
	if v := strings.TrimSpace(os.Getenv("MINERUP_SUBTENSOR_ADDRESS")); v != "" {
		p.SubtensorAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("MINERUP_AXON_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MINERUP_AXON_PORT: %w", err)
		}
		p.AxonPort = n
	}
	return nil
}

// WandbAPIKeyFromEnv returns the credential override for automated runs.
func WandbAPIKeyFromEnv() string {
	return strings.TrimSpace(os.Getenv("MINERUP_WANDB_API_KEY"))
}

func expandPath(path string) (string, error) {
	switch {
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	case path == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home, nil
	case filepath.IsAbs(path):
		return path, nil
	default:
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, path), nil
	}
}
