package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultPortalURL      = "https://www.arcgis.com"
	DefaultCredentialMode = "ambient"
	DefaultOutputDir      = "."
	DefaultDataDir        = "~/.layerpull/data"

	DefaultExportTimeout      = 10 * time.Minute
	DefaultExportPollInterval = 5 * time.Second

	DefaultCallbackPortStart = 8765
	DefaultCallbackPortEnd   = 8775
	DefaultCallbackTimeout   = 5 * time.Minute

	DefaultLogFile       = "~/.layerpull/layerpull.log"
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
)

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() Config {
	return Config{
		PortalURL:      DefaultPortalURL,
		CredentialMode: DefaultCredentialMode,
		OutputDir:      DefaultOutputDir,
		DataDir:        DefaultDataDir,
		Export: ExportConfig{
			Timeout:      DefaultExportTimeout,
			PollInterval: DefaultExportPollInterval,
		},
		OAuth: OAuthConfig{
			CallbackPortStart: DefaultCallbackPortStart,
			CallbackPortEnd:   DefaultCallbackPortEnd,
			CallbackTimeout:   DefaultCallbackTimeout,
		},
		Log: LogConfig{
			File:       DefaultLogFile,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}

// setViperDefaults registers every key so that environment overrides apply
// even when the key is absent from the config file.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("portal_url", DefaultPortalURL)
	v.SetDefault("item_id", "")
	v.SetDefault("credential_mode", DefaultCredentialMode)
	v.SetDefault("client_id", "")
	v.SetDefault("desktop_env", "")
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("data_dir", DefaultDataDir)

	v.SetDefault("export.timeout", DefaultExportTimeout)
	v.SetDefault("export.poll_interval", DefaultExportPollInterval)
	v.SetDefault("export.keep_remote", false)

	v.SetDefault("oauth.callback_port_start", DefaultCallbackPortStart)
	v.SetDefault("oauth.callback_port_end", DefaultCallbackPortEnd)
	v.SetDefault("oauth.callback_timeout", DefaultCallbackTimeout)

	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAgeDays)
}
