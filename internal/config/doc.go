// Package config loads layerpull settings with viper.
//
// Values come from, in increasing precedence: built-in defaults,
// config.toml in ConfigDir, and LAYERPULL_* environment variables.
// CLI flags override the loaded values at the command layer.
package config
