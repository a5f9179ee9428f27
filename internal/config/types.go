package config

import (
	"time"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// Config is the root configuration structure for layerpull.
type Config struct {
	PortalURL      string       `mapstructure:"portal_url"`
	ItemID         string       `mapstructure:"item_id"`
	CredentialMode string       `mapstructure:"credential_mode"`
	ClientID       string       `mapstructure:"client_id"`
	DesktopEnv     string       `mapstructure:"desktop_env"`
	OutputDir      string       `mapstructure:"output_dir"`
	DataDir        string       `mapstructure:"data_dir"`
	Export         ExportConfig `mapstructure:"export"`
	OAuth          OAuthConfig  `mapstructure:"oauth"`
	Log            LogConfig    `mapstructure:"log"`
}

// ExportConfig holds server-side export settings.
type ExportConfig struct {
	// Timeout bounds the wait for an export job to complete.
	Timeout time.Duration `mapstructure:"timeout"`
	// PollInterval is the delay between export status polls.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// KeepRemote leaves the temporary export item on the portal.
	KeepRemote bool `mapstructure:"keep_remote"`
}

// OAuthConfig holds settings for the interactive app-registered sign-in.
type OAuthConfig struct {
	CallbackPortStart int           `mapstructure:"callback_port_start"`
	CallbackPortEnd   int           `mapstructure:"callback_port_end"`
	CallbackTimeout   time.Duration `mapstructure:"callback_timeout"`
}

// LogConfig holds diagnostic log file settings.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Profile builds a connection profile from the configured values.
// An unparseable credential mode is passed through as-is so that
// ConnectionProfile.Validate reports it.
func (c *Config) Profile() domain.ConnectionProfile {
	mode, err := domain.ParseCredentialMode(c.CredentialMode)
	if err != nil {
		mode = domain.CredentialMode(c.CredentialMode)
	}
	return domain.ConnectionProfile{
		DesktopEnv:     c.DesktopEnv,
		ItemID:         c.ItemID,
		PortalURL:      c.PortalURL,
		CredentialMode: mode,
		ClientID:       c.ClientID,
	}
}
