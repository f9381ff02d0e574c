package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/agent462/hostlist/internal/hostlist"
)

// Config represents the top-level hostlist configuration.
type Config struct {
	Groups     map[string]Group     `yaml:"groups"`
	Recipes    map[string]Recipe    `yaml:"recipes,omitempty"`
	Transforms map[string]Transform `yaml:"transforms,omitempty"`
	Defaults   Defaults             `yaml:"defaults"`
	SSHConfig  string               `yaml:"ssh_config,omitempty"` // import literal Host entries as group "ssh"
}

// Group defines a named host list as one or more range expressions.
type Group struct {
	Description string   `yaml:"description,omitempty"`
	Hosts       []string `yaml:"hosts"`
}

// Recipe defines a named sequence of operation lines. A step of the form
// "NAME = OP ARGS..." stores its result as @NAME for later steps, and $1..$N
// or $@ are replaced by the recipe's arguments.
type Recipe struct {
	Description string   `yaml:"description,omitempty"`
	Steps       []string `yaml:"steps"`
}

// Transform is a named set of map rules, applied with map --use NAME.
type Transform struct {
	Description string `yaml:"description,omitempty"`
	Match       string `yaml:"match,omitempty"`
	Extract     string `yaml:"extract,omitempty"`
	SSH         string `yaml:"ssh,omitempty"`
	Format      string `yaml:"format,omitempty"`
}

// Defaults holds default settings.
type Defaults struct {
	MaxStringLen int    `yaml:"max_string_len"` // 0 = unlimited
	Output       string `yaml:"output"`         // "ranged", "expanded" or "json"
	Color        bool   `yaml:"color"`
}

// Output modes.
const (
	OutputRanged   = "ranged"
	OutputExpanded = "expanded"
	OutputJSON     = "json"
)

// SSHGroup is the group name under which ssh_config hosts are imported.
const SSHGroup = "ssh"

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Groups: make(map[string]Group),
		Defaults: Defaults{
			MaxStringLen: 4096,
			Output:       OutputRanged,
			Color:        true,
		},
	}
}

// DefaultConfigPath returns the default config file path.
// Respects $XDG_CONFIG_HOME if set, otherwise falls back to ~/.config.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir != "" {
		return filepath.Join(configDir, "hostlist", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hostlist", "config.yaml")
}

// Load reads and parses a config YAML file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Groups == nil {
		cfg.Groups = make(map[string]Group)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads the config from the default path
// (~/.config/hostlist/config.yaml). If the file does not exist, it returns
// the default config.
func LoadDefault() (*Config, error) {
	path := DefaultConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Save writes the config to the given file path as YAML.
// It creates parent directories if they don't exist.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	if c.Defaults.MaxStringLen < 0 {
		return fmt.Errorf("max_string_len must be non-negative, got %d", c.Defaults.MaxStringLen)
	}

	validOutputModes := map[string]bool{OutputRanged: true, OutputExpanded: true, OutputJSON: true}
	if c.Defaults.Output != "" && !validOutputModes[c.Defaults.Output] {
		return fmt.Errorf("invalid output mode %q, must be one of: ranged, expanded, json", c.Defaults.Output)
	}

	for name, group := range c.Groups {
		if !nameRe.MatchString(name) {
			return fmt.Errorf("group name %q must match [a-zA-Z0-9_-]+", name)
		}
		if name == "all" || (name == SSHGroup && c.SSHConfig != "") {
			return fmt.Errorf("group name %q is reserved", name)
		}
		if len(group.Hosts) == 0 {
			return fmt.Errorf("group %q has no hosts", name)
		}
		for _, expr := range group.Hosts {
			if _, err := hostlist.Parse(expr); err != nil {
				return fmt.Errorf("group %q: %w", name, err)
			}
		}
	}

	for name, recipe := range c.Recipes {
		if !nameRe.MatchString(name) {
			return fmt.Errorf("recipe name %q must match [a-zA-Z0-9_-]+", name)
		}
		if len(recipe.Steps) == 0 {
			return fmt.Errorf("recipe %q has no steps", name)
		}
	}

	for name, t := range c.Transforms {
		if !nameRe.MatchString(name) {
			return fmt.Errorf("transform name %q must match [a-zA-Z0-9_-]+", name)
		}
		if t == (Transform{Description: t.Description}) {
			return fmt.Errorf("transform %q has no rules", name)
		}
	}

	return nil
}
