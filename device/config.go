package device

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Placeholders expanded in command arguments
const (
	PlaceholderArtifact = "{artifact}"
	PlaceholderURL      = "{url}"
	PlaceholderBundleID = "{bundle_id}"
)

// Commands holds the command lines used to drive the execution environment.
// Each entry is an argv; the first element is the program.
type Commands struct {
	Open      []string `yaml:"open"`
	Uninstall []string `yaml:"uninstall"`
	Install   []string `yaml:"install"`
	Installed []string `yaml:"installed"`
	OpenURL   []string `yaml:"open_url"`
}

// Config describes how to control the device
type Config struct {
	BundleID       string        `yaml:"bundle_id"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	InstallTimeout time.Duration `yaml:"install_timeout"`
	Commands       Commands      `yaml:"commands"`
}

// DefaultConfig drives the booted iOS simulator through xcrun simctl
func DefaultConfig() Config {
	return Config{
		BundleID:       "host.exp.Exponent",
		PollInterval:   time.Second,
		InstallTimeout: 2 * time.Minute,
		Commands: Commands{
			Open:      []string{"open", "-a", "Simulator"},
			Uninstall: []string{"xcrun", "simctl", "uninstall", "booted", PlaceholderBundleID},
			Install:   []string{"xcrun", "simctl", "install", "booted", PlaceholderArtifact},
			Installed: []string{"xcrun", "simctl", "get_app_container", "booted", PlaceholderBundleID},
			OpenURL:   []string{"xcrun", "simctl", "openurl", "booted", PlaceholderURL},
		},
	}
}

// LoadConfig reads a YAML device config. Fields missing from the file keep
// their default values. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read device config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse device config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid device config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every command is set and intervals are positive
func (c Config) Validate() error {
	cmds := map[string][]string{
		"open":      c.Commands.Open,
		"uninstall": c.Commands.Uninstall,
		"install":   c.Commands.Install,
		"installed": c.Commands.Installed,
		"open_url":  c.Commands.OpenURL,
	}
	for name, argv := range cmds {
		if len(argv) == 0 || argv[0] == "" {
			return fmt.Errorf("command %q is empty", name)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.InstallTimeout <= 0 {
		return fmt.Errorf("install_timeout must be positive, got %v", c.InstallTimeout)
	}
	return nil
}

// expand substitutes placeholders in every argument of argv
func expand(argv []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}
