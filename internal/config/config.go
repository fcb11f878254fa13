// Package config loads the vaultkeeper configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file inside the home directory.
const FileName = "config.yaml"

// Config is the user configuration. Every field is optional in the file.
type Config struct {
	VaultDir  string `yaml:"vault_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Audit     bool   `yaml:"audit"`
	Clipboard bool   `yaml:"clipboard"`

	// Warnings collects problems that did not prevent loading.
	Warnings []string `yaml:"-"`
}

// HomeDir returns ~/.vaultkeeper.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".vaultkeeper"), nil
}

// DefaultPath returns ~/.vaultkeeper/config.yaml.
func DefaultPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	dir, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		VaultDir:  filepath.Join(dir, "vaults"),
		LogLevel:  "warn",
		LogFormat: "text",
		Audit:     true,
		Clipboard: true,
	}, nil
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults. A file writable by group or others is still loaded, with a
// warning in Config.Warnings.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	f, info, err := openNoFollow(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	if perm := info.Mode().Perm(); perm&0022 != 0 {
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("%s is writable by other users (mode %04o)", path, perm))
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.VaultDir, err = expandHome(cfg.VaultDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q (use debug, info, warn or error)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log_format %q (use text or json)", c.LogFormat)
	}
	if c.VaultDir == "" {
		return errors.New("config: vault_dir must not be empty")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
