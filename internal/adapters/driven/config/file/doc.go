// Package file persists layerpull configuration as a TOML file.
//
// ConfigStore reads config.toml from the config directory, exposes it as
// dot-notation keys ("export.timeout") and writes changes back as nested
// tables, so the file stays compatible with what internal/config loads
// through viper.
package file
