package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// Unwrap lets callers match validation failures with domain.ErrInvalidInput.
func (e ValidationErrors) Unwrap() error {
	return domain.ErrInvalidInput
}

// Validate checks the configuration for errors.
// Item ID is not checked here; commands take it as an argument.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if u, err := url.Parse(cfg.PortalURL); err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		errs = append(errs, ValidationError{
			Field:   "portal_url",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", cfg.PortalURL),
		})
	}

	if _, err := domain.ParseCredentialMode(cfg.CredentialMode); err != nil {
		errs = append(errs, ValidationError{
			Field:   "credential_mode",
			Message: fmt.Sprintf("must be ambient or app-registered, got %q", cfg.CredentialMode),
		})
	}

	if cfg.Export.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "export.timeout",
			Message: fmt.Sprintf("must be positive, got %s", cfg.Export.Timeout),
		})
	}

	if cfg.Export.PollInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "export.poll_interval",
			Message: fmt.Sprintf("must be positive, got %s", cfg.Export.PollInterval),
		})
	}

	start, end := cfg.OAuth.CallbackPortStart, cfg.OAuth.CallbackPortEnd
	if start < 1 || end > 65535 || start > end {
		errs = append(errs, ValidationError{
			Field:   "oauth.callback_port_start",
			Message: fmt.Sprintf("port range %d-%d must lie within 1-65535 and be ascending", start, end),
		})
	}

	if cfg.OAuth.CallbackTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "oauth.callback_timeout",
			Message: fmt.Sprintf("must be positive, got %s", cfg.OAuth.CallbackTimeout),
		})
	}

	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "log",
			Message: "max_size_mb, max_backups and max_age_days must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
