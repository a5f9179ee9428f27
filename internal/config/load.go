package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides, e.g.
// LAYERPULL_EXPORT_TIMEOUT for export.timeout.
const EnvPrefix = "LAYERPULL"

// Load reads configuration from config.toml in ConfigDir.
// A missing config file is not an error; defaults and environment variables
// apply. A config file that exists but cannot be parsed or fails validation
// is an error.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(ConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config; %w", err)
		}
	}

	return unmarshalConfig(v)
}

// LoadFromPath reads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	return unmarshalConfig(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// unmarshalConfig converts viper config to typed Config struct.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	cfg.DataDir = ExpandHome(cfg.DataDir)
	cfg.Log.File = ExpandHome(cfg.Log.File)
	cfg.DesktopEnv = ExpandHome(cfg.DesktopEnv)
	cfg.OutputDir = ExpandHome(cfg.OutputDir)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateValues reports whether the flat dotted-key settings in values,
// read as a config file over the defaults and environment, load cleanly.
func ValidateValues(values map[string]any) error {
	v := newViper()
	if err := v.MergeConfigMap(nestValues(values)); err != nil {
		return fmt.Errorf("failed to merge config; %w", err)
	}
	_, err := unmarshalConfig(v)
	return err
}

// nestValues turns {"a.b": 1} into {"a": {"b": 1}}.
func nestValues(values map[string]any) map[string]any {
	out := make(map[string]any)
	for key, val := range values {
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := m[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				m[p] = child
			}
			m = child
		}
		m[parts[len(parts)-1]] = val
	}
	return out
}
