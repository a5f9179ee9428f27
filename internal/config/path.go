package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigDir overrides the configuration directory.
const EnvConfigDir = "LAYERPULL_CONFIG_DIR"

// ConfigDir returns the configuration directory: $LAYERPULL_CONFIG_DIR when
// set, otherwise ~/.layerpull.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".layerpull"
	}
	return filepath.Join(home, ".layerpull")
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
